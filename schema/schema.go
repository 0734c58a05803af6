// Package schema compiles collection JSON Schemas (draft-07 plus the
// x-unique and x-parent-id custom keywords) and caches the compiled
// validators for the lifetime of the owning Backend.
package schema

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/EluvK/syncstore/synerr"
)

// crossRefPattern recognizes the "<collection>.id" sentinel that
// stands in for a non-parental cross-collection reference. It is not
// a real draft-07 $ref (there is no such schema resource), so it is
// stripped before the document reaches the real compiler and instead
// tracked as metadata the Backend checks at write time.
var crossRefPattern = regexp.MustCompile(`^([A-Za-z0-9_]+)\.id$`)

// Compiled is an immutable, cached validator for one collection, plus
// the unique/parent/reference metadata the Backend reads from it
// rather than re-parsing the source JSON.
type Compiled struct {
	Collection       string
	Raw              []byte            // exact bytes passed to Register, for idempotency checks
	Unique           []string          // top-level property names marked x-unique
	ParentProp       string            // top-level property carrying x-parent-id, or ""
	ParentCollection string            // its target collection
	CrossRefs        map[string]string // top-level property -> target collection (from $ref)

	validator *jsonschema.Schema
}

// Validate runs doc against the compiled schema. On failure it returns
// a *synerr.Error of kind ValidationError carrying the failing JSON
// pointer and reason.
func (c *Compiled) Validate(op string, doc []byte) error {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	err := dec.Decode(&v)
	if err != nil {
		return synerr.Validation(op, "", "invalid JSON: "+err.Error())
	}
	if err := c.validator.Validate(v); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return synerr.Validation(op, "", err.Error())
		}
		ptr, reason := leafFailure(ve)
		return synerr.Validation(op, ptr, reason)
	}
	return nil
}

// leafFailure walks to the deepest cause of a validation error, which
// is almost always the most specific, readable failure.
func leafFailure(ve *jsonschema.ValidationError) (pointer, reason string) {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return "/" + strings.TrimPrefix(ve.InstanceLocation, "/"), ve.Message
}

type schemaMeta struct {
	unique           []string
	parentProp       string
	parentCollection string
	crossRefs        map[string]string
}

// extractMeta scans only top-level properties: Meta.parent_id and
// Meta.unique are materialized from top-level document fields, and
// spec.md caps x-parent-id at one occurrence per schema.
func extractMeta(generic map[string]any) (schemaMeta, error) {
	m := schemaMeta{crossRefs: map[string]string{}}
	props, _ := generic["properties"].(map[string]any)
	for name, raw := range props {
		ps, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if u, ok := ps["x-unique"].(bool); ok && u {
			m.unique = append(m.unique, name)
		}
		if pid, ok := ps["x-parent-id"].(string); ok && pid != "" {
			if m.parentProp != "" {
				return m, synerr.New("schema.compile", synerr.InvalidSchema, "at most one x-parent-id property is allowed per schema")
			}
			m.parentProp = name
			m.parentCollection = pid
		}
		if ref, ok := ps["$ref"].(string); ok {
			if match := crossRefPattern.FindStringSubmatch(ref); match != nil {
				m.crossRefs[name] = match[1]
			}
		}
	}
	sort.Strings(m.unique)
	return m, nil
}

// stripCrossRefSentinels removes "$ref": "<collection>.id" properties
// in place so the real compiler never tries to resolve them as schema
// resources.
func stripCrossRefSentinels(generic map[string]any) {
	props, ok := generic["properties"].(map[string]any)
	if !ok {
		return
	}
	for _, raw := range props {
		ps, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if ref, ok := ps["$ref"].(string); ok && crossRefPattern.MatchString(ref) {
			delete(ps, "$ref")
		}
	}
}

// compile parses, sanitizes, and compiles schemaJSON for collection.
// It does not check that an x-parent-id target is already registered;
// that is the Registry's job, since it needs the sibling set.
func compile(collection string, schemaJSON []byte) (*Compiled, error) {
	const op = "schema.compile"

	var generic map[string]any
	if err := json.Unmarshal(schemaJSON, &generic); err != nil {
		return nil, synerr.Wrap(op, synerr.InvalidSchema, err)
	}

	meta, err := extractMeta(generic)
	if err != nil {
		return nil, err
	}
	stripCrossRefSentinels(generic)

	sanitized, err := json.Marshal(generic)
	if err != nil {
		return nil, synerr.Wrap(op, synerr.InvalidSchema, err)
	}

	c := newCompiler()
	url := collection + ".json"
	if err := c.AddResource(url, bytes.NewReader(sanitized)); err != nil {
		return nil, synerr.Wrap(op, synerr.InvalidSchema, err)
	}
	validator, err := c.Compile(url)
	if err != nil {
		return nil, synerr.Wrap(op, synerr.InvalidSchema, err)
	}

	return &Compiled{
		Collection:       collection,
		Raw:              append([]byte(nil), schemaJSON...),
		Unique:           meta.unique,
		ParentProp:       meta.parentProp,
		ParentCollection: meta.parentCollection,
		CrossRefs:        meta.crossRefs,
		validator:        validator,
	}, nil
}
