// Package toolschema holds the static argument schemas for well-known
// remote tools and normalizes caller arguments against them before
// dispatch. Tools absent from the table fall back to an open schema and
// their arguments pass through unchanged.
package toolschema

import (
	"reflect"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	cache   = make(map[reflect.Type]*Schema)
	cacheMu sync.RWMutex

	validate = validator.New()
)

// Schema is the flattened argument schema for one tool, derived from its
// argument struct type.
type Schema struct {
	*jsonschema.Schema

	argsType reflect.Type
}

// New builds (and caches) the schema for the given argument struct type.
func New(t reflect.Type) (*Schema, error) {
	cacheMu.RLock()
	s, ok := cache[t]
	cacheMu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := buildSchema(t)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	cache[t] = s
	cacheMu.Unlock()
	return s, nil
}

func buildSchema(t reflect.Type) (*Schema, error) {
	r := new(jsonschema.Reflector)
	root := r.ReflectFromType(t)

	refID := strings.TrimPrefix(root.Ref, "#/$defs/")
	def, ok := root.Definitions[refID]
	if !ok {
		return nil, errors.Errorf("schema definition not found for %s", t.Name())
	}

	props := def.Properties
	if props == nil {
		props = orderedmap.New[string, *jsonschema.Schema]()
	}
	flat := &jsonschema.Schema{
		Type:       def.Type,
		Properties: props,
		Required:   def.Required,
	}
	return &Schema{
		Schema:   flat,
		argsType: t,
	}, nil
}

// Normalize shapes args to the schema: unknown keys are dropped, schema
// defaults fill absent keys, and missing required keys are an error.
func (s *Schema) Normalize(args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		if v, ok := args[name]; ok {
			out[name] = v
			continue
		}
		if pair.Value.Default != nil {
			out[name] = pair.Value.Default
		}
	}

	var missing []string
	for _, name := range s.Required {
		if _, ok := out[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("missing required arguments: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// Validate runs struct-level validation of the normalized args against the
// argument type the schema was derived from.
func (s *Schema) Validate(args map[string]any) error {
	v := reflect.New(s.argsType).Interface()
	if err := decodeInto(args, v); err != nil {
		return err
	}
	return validate.Struct(v)
}
