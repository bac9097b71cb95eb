package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

//go:embed schema.json
var embeddedSchema string

// schemaNode is the subset of json schema used for verification
type schemaNode struct {
	Ref        string                `json:"$ref"`
	Type       string                `json:"type"`
	Minimum    *float64              `json:"minimum"`
	Properties map[string]schemaNode `json:"properties"`
	Required   []string              `json:"required"`
	Defs       map[string]schemaNode `json:"$defs"`
}

// VerifyAgainstEmbeddedSchema validates the config against the embedded JSON schema
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	var schema schemaNode
	if err := json.Unmarshal([]byte(embeddedSchema), &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	// convert config to JSON for validation
	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	var configMap map[string]any
	if err := json.Unmarshal(configData, &configMap); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if err := verifyObject(schema.resolve(schema.Defs), configMap, schema.Defs, ""); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func (s schemaNode) resolve(defs map[string]schemaNode) schemaNode {
	if s.Ref == "" {
		return s
	}
	if d, ok := defs[strings.TrimPrefix(s.Ref, "#/$defs/")]; ok {
		return d
	}
	return s
}

func verifyObject(schema schemaNode, obj map[string]any, defs map[string]schemaNode, path string) error {
	for _, name := range schema.Required {
		if _, ok := obj[name]; !ok {
			return fmt.Errorf("%s%s is required", path, name)
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		prop, ok := schema.Properties[key]
		if !ok {
			return fmt.Errorf("%s%s is not defined in schema", path, key)
		}
		prop = prop.resolve(defs)

		switch v := obj[key].(type) {
		case map[string]any:
			if err := verifyObject(prop, v, defs, path+key+"."); err != nil {
				return err
			}
		case float64:
			if prop.Minimum != nil && v < *prop.Minimum {
				return fmt.Errorf("%s%s must be at least %v", path, key, *prop.Minimum)
			}
		}
	}
	return nil
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() (*jsonschema.Schema, error) {
	return jsonschema.Reflect(&Config{}), nil
}
