package harness

import "github.com/santhosh-tekuri/jsonschema/v5"

// recordSchema describes the shape of one decision record as written by the
// workflow's logging stage. Records failing validation indicate a pipeline
// regression, not an eventual-consistency artifact, so they are terminal.
const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["session_id", "final_status", "threat_score"],
  "properties": {
    "session_id": {"type": "string", "minLength": 1},
    "final_status": {"type": "string", "enum": ["ALLOWED", "SANITIZED", "BLOCKED"]},
    "threat_score": {"type": "number", "minimum": 0, "maximum": 100},
    "sanitized_output": {"type": "string"},
    "detected_entities": {"type": "array", "items": {"type": "string"}},
    "detection_method": {"type": "string", "enum": ["presidio_nlp", "regex_fallback"]},
    "pii_details": {
      "type": "object",
      "properties": {
        "entity_count": {"type": "integer", "minimum": 0},
        "entities": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "type": {"type": "string"},
              "confidence": {"type": "number"},
              "method": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

var compiledRecordSchema = jsonschema.MustCompileString("record.json", recordSchema)
