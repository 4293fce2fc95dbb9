// Package config validates a JSON document describing a
// ReaderDescription against a JSON Schema before a host integration
// ever calls manager.CreateReader with it, built on
// github.com/xeipuuv/gojsonschema. A ReaderDescription itself is a
// host-language value, not JSON — this package is optional pre-flight
// tooling a host integration can call, not something
// manager.CreateReader requires.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/inputcore/errors"
)

// fieldSchema is the JSON Schema fragment for one flattened FieldSpec
// entry in an idx/val field list.
const fieldSchema = `{
	"type": "object",
	"required": ["name", "kind"],
	"additionalProperties": false,
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"kind": {
			"type": "string",
			"enum": ["bool", "int", "count", "counter", "port", "double", "time", "interval", "string", "enum", "addr", "subnet", "set", "vector"]
		},
		"inner_kind": {
			"type": "string",
			"enum": ["bool", "int", "count", "counter", "port", "double", "time", "interval", "string", "enum", "addr", "subnet"]
		}
	}
}`

// readerDescriptionSchema is the meta-schema a ReaderDescription-shaped
// JSON document is validated against: its reader/source/want_record/
// idx/val fields, minus `destination`, which is a host table reference
// with no JSON representation.
const readerDescriptionSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["reader", "source", "idx", "val"],
	"additionalProperties": false,
	"properties": {
		"reader": {"type": "string", "minLength": 1},
		"source": {"type": "string", "minLength": 1},
		"want_record": {"type": "boolean"},
		"idx": {"type": "array", "minItems": 1, "items": ` + fieldSchema + `},
		"val": {"type": "array", "minItems": 1, "items": ` + fieldSchema + `}
	}
}`

// FieldConfig is the JSON shape of one flattened schema.FieldSpec leaf.
type FieldConfig struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	InnerKind string `json:"inner_kind,omitempty"`
}

// ReaderConfig is the JSON shape of a ReaderDescription, minus
// `destination`. Idx/Val are already-flattened field lists rather than
// host record types, since a JSON config has no way to reference a
// live host record type — a host integration unrolls its own record
// types into this shape (or the reverse) at its boundary.
type ReaderConfig struct {
	Reader     string        `json:"reader"`
	Source     string        `json:"source"`
	WantRecord bool          `json:"want_record"`
	Idx        []FieldConfig `json:"idx"`
	Val        []FieldConfig `json:"val"`
}

// Validate checks data against readerDescriptionSchema and, if it
// passes, unmarshals it into a ReaderConfig. Schema violations and
// malformed JSON are both reported via errors.WrapInvalid, since both
// are caller configuration mistakes rather than internal failures.
func Validate(data []byte) (ReaderConfig, error) {
	schemaLoader := gojsonschema.NewStringLoader(readerDescriptionSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return ReaderConfig{}, errors.WrapInvalid(err, "config", "Validate", "schema load/compile")
	}

	if !result.Valid() {
		msg := "reader config failed schema validation:"
		for _, desc := range result.Errors() {
			msg += fmt.Sprintf(" %s: %s;", desc.Field(), desc.Description())
		}
		return ReaderConfig{}, errors.WrapInvalid(fmt.Errorf("%s", msg), "config", "Validate", "schema check")
	}

	var cfg ReaderConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ReaderConfig{}, errors.WrapInvalid(err, "config", "Validate", "unmarshal")
	}
	return cfg, nil
}
