package catalog

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const snapshotSchemaURL = "schema://catalog-snapshot.json"

// snapshotSchema describes the catalog snapshot document. Unknown fields are
// allowed so newer exporters can add data without breaking older readers.
const snapshotSchema = `{
  "type": "object",
  "required": ["version", "tasks"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "aliasIds": {"type": "array", "items": {"type": "string"}},
          "name": {"type": "string"},
          "nameVariants": {"type": "object", "additionalProperties": {"type": "string"}},
          "trader": {"type": "string"},
          "requiredLevel": {"type": "integer", "minimum": 0},
          "prerequisiteIds": {"type": "array", "items": {"type": "string"}},
          "followUpIds": {"type": "array", "items": {"type": "string"}},
          "requiredForEndgame": {"type": "boolean"},
          "alternativeGroup": {"type": "string"},
          "alternativeIds": {"type": "array", "items": {"type": "string"}},
          "objectives": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["index"],
              "properties": {
                "index": {"type": "integer", "minimum": 0},
                "type": {"type": "string"},
                "items": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["itemId"],
                    "properties": {
                      "itemId": {"type": "string"},
                      "count": {"type": "integer", "minimum": 0},
                      "foundInRaid": {"type": "boolean"}
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// getCompiledSchema compiles the snapshot schema once per process.
func getCompiledSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		var def any
		if err := json.Unmarshal([]byte(snapshotSchema), &def); err != nil {
			compileErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(snapshotSchemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(snapshotSchemaURL)
	})
	return compiledSchema, compileErr
}

// validateDocument checks a decoded JSON value against the snapshot schema.
func validateDocument(doc any) error {
	compiled, err := getCompiledSchema()
	if err != nil {
		return fmt.Errorf("compile snapshot schema: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
