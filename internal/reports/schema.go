package reports

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const summarySchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["summary", "risk_level", "parameters", "recommendations"],
  "properties": {
    "summary": {"type": "string", "minLength": 1},
    "risk_level": {"enum": ["low", "medium", "high"]},
    "parameters": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "value", "unit", "reference_range", "status", "explanation"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "value": {"type": ["number", "string"]},
          "unit": {"type": "string"},
          "reference_range": {"type": "string"},
          "status": {"enum": ["low", "normal", "high"]},
          "explanation": {"type": "string"}
        }
      }
    },
    "recommendations": {
      "type": "object",
      "required": ["diet", "exercise", "lifestyle"],
      "properties": {
        "diet": {"type": "array", "items": {"type": "string"}},
        "exercise": {"type": "array", "items": {"type": "string"}},
        "lifestyle": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

const summarySchemaURL = "medical_report_summary.json"

var (
	summarySchemaOnce sync.Once
	summarySchema     *jsonschema.Schema
)

func compiledSummarySchema() *jsonschema.Schema {
	summarySchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(summarySchemaURL, strings.NewReader(summarySchemaJSON)); err != nil {
			panic("summary schema: " + err.Error())
		}
		summarySchema = compiler.MustCompile(summarySchemaURL)
	})
	return summarySchema
}

// validateSummaryDocument checks a decoded JSON document against the summary schema.
func validateSummaryDocument(doc any) error {
	if err := compiledSummarySchema().Validate(doc); err != nil {
		return schemaError(err)
	}
	return nil
}

const missingPropertiesPrefix = "missing properties: "

// schemaError reduces a validation tree to its first leaf.
func schemaError(err error) *SchemaValidationError {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &SchemaValidationError{Field: "/", Reason: err.Error()}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := leaf.InstanceLocation
	if rest, ok := strings.CutPrefix(leaf.Message, missingPropertiesPrefix); ok {
		first, _, _ := strings.Cut(rest, ",")
		if name, err := strconv.Unquote(strings.TrimSpace(first)); err == nil {
			field = strings.TrimSuffix(field, "/") + "/" + name
		}
	}
	if field == "" {
		field = "/"
	}
	return &SchemaValidationError{Field: field, Reason: leaf.Message}
}
