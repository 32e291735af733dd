package registry

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const definitionSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["name", "steps"],
	"properties": {
		"id": {"type": "string"},
		"name": {"type": "string", "minLength": 1},
		"state": {"type": "object"},
		"exit_on_failure": {"type": "boolean"},
		"freeze_on_completion": {"type": "boolean"},
		"steps": {
			"type": "array",
			"items": {"$ref": "#/definitions/step"}
		}
	},
	"definitions": {
		"step": {
			"type": "object",
			"required": ["name", "type"],
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"type": {
					"type": "string",
					"enum": ["action", "conditional", "switch", "flow_control", "skip", "delay", "loop"]
				},
				"action": {"type": "string"},
				"config": {"type": "object"},
				"condition": {"$ref": "#/definitions/condition"},
				"left": {"$ref": "#/definitions/step"},
				"right": {"$ref": "#/definitions/step"},
				"cases": {
					"type": "array",
					"minItems": 1,
					"items": {
						"type": "object",
						"required": ["operator", "action"],
						"properties": {
							"operator": {"type": "string"},
							"action": {"type": "string"}
						}
					}
				},
				"default": {"type": "string"},
				"mode": {"type": "string", "enum": ["break", "continue"]},
				"delay_type": {"type": "string", "enum": ["absolute", "relative", "cron"]},
				"duration": {"type": "string"},
				"cron": {"type": "string"},
				"loop_type": {"type": "string", "enum": ["while", "for_each"]},
				"iterable": {"type": "array"},
				"max_iterations": {"type": "integer", "minimum": 1},
				"body": {
					"type": "array",
					"items": {"$ref": "#/definitions/step"}
				}
			}
		},
		"condition": {
			"type": "object",
			"required": ["operator"],
			"properties": {
				"operator": {"type": "string"}
			}
		}
	}
}`

// ValidateDefinition checks raw JSON against the definition schema.
func ValidateDefinition(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(definitionSchema)
	dataLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("invalid definition: %s", strings.Join(descriptions, "; "))
	}

	return nil
}
