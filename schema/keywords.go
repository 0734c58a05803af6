package schema

import "github.com/santhosh-tekuri/jsonschema/v5"

// x-unique has no validation effect at the JSON level (spec: it is a
// signal to the Backend, not a predicate) so it is left unregistered;
// the draft-07 compiler ignores unrecognized keywords by default.
//
// x-parent-id does carry one validation effect: the property it
// decorates must be a string. That's registered here as a custom
// keyword, following the extension pattern the library documents for
// custom vocabularies: Compile rejects a schema whose x-parent-id value
// is not a string, and Validate rejects a non-string property value.
var parentIDMeta = jsonschema.MustCompileString("x-parent-id.json", `{
	"properties": {
		"x-parent-id": { "type": "string" }
	}
}`)

type parentIDCompiler struct{}

func (parentIDCompiler) Compile(_ jsonschema.CompilerContext, m map[string]interface{}) (jsonschema.ExtSchema, error) {
	if _, ok := m["x-parent-id"]; ok {
		return parentIDSchema{}, nil
	}
	return nil, nil
}

type parentIDSchema struct{}

func (parentIDSchema) Validate(ctx jsonschema.ValidationContext, v interface{}) error {
	if _, ok := v.(string); !ok {
		return ctx.Error("x-parent-id", "parent reference must be a string")
	}
	return nil
}

func newCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	c.RegisterExtension("x-parent-id", parentIDMeta, parentIDCompiler{})
	return c
}
