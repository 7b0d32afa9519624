package config

import (
	"embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaFS embed.FS

// Validator checks a configuration document against the embedded CUE
// schema before it is unmarshaled into a Config struct.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded schema once; callers may share a
// single Validator across many Validate calls.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile("schema.cue")
	if err != nil {
		return nil, fmt.Errorf("config: loading embedded schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("config: compiling schema: %w", schema.Err())
	}

	return &Validator{ctx: ctx, schema: schema}, nil
}

// Validate checks jsonBytes against the #Config definition.
func (v *Validator) Validate(jsonBytes []byte) error {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling document as CUE: %w", dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath("#Config"))
	if def.Err() != nil {
		return fmt.Errorf("looking up #Config definition: %w", def.Err())
	}

	unified := def.Unify(dataValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
