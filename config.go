package syncstore

import (
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"
)

// SchemaConfig is one collection's schema within a NamespaceConfig.
type SchemaConfig struct {
	Collection string          `yaml:"collection"`
	SchemaJSON json.RawMessage `yaml:"schema_json"`
}

// NamespaceConfig describes one namespace and its collection schemas,
// in dependency order (parents before children).
type NamespaceConfig struct {
	Name    string         `yaml:"name"`
	Schemas []SchemaConfig `yaml:"schemas"`
}

// Config is the external configuration surface: a filesystem root for
// database files, the namespaces to provision at Open, a per-namespace
// connection pool cap, and the ancestor-walk depth cap.
type Config struct {
	RootDir        string            `yaml:"root_dir"`
	Namespaces     []NamespaceConfig `yaml:"namespaces"`
	PoolSize       int               `yaml:"pool_size"`
	PolicyMaxDepth int               `yaml:"policy_max_depth"`
}

// LoadConfig reads and decodes a YAML config file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
