package output

// ReportSchema is the JSON Schema for the machine-readable check
// report. Consumers that parse --format json output can validate
// against it.
const ReportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "pytestee check report",
  "type": "object",
  "required": ["files", "summary"],
  "properties": {
    "files": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "findings", "test_count"],
        "properties": {
          "path": {"type": "string"},
          "test_count": {"type": "integer", "minimum": 0},
          "parse_failed": {"type": "boolean"},
          "rule_failures": {"type": "integer", "minimum": 0},
          "densities": {
            "type": "array",
            "items": {"type": "number", "minimum": 0, "maximum": 1}
          },
          "findings": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["rule_id", "severity", "message", "path", "line"],
              "properties": {
                "rule_id": {"type": "string", "pattern": "^PT[A-Z]{2}[0-9]{3}$"},
                "severity": {"enum": ["info", "warning", "error"]},
                "message": {"type": "string"},
                "path": {"type": "string"},
                "line": {"type": "integer", "minimum": 1},
                "column": {"type": "integer", "minimum": 0},
                "function": {"type": "string"},
                "class": {"type": "string"},
                "internal": {"type": "boolean"}
              }
            }
          }
        }
      }
    },
    "summary": {
      "type": "object",
      "required": ["total_files", "total_tests", "total_findings"],
      "properties": {
        "total_files": {"type": "integer", "minimum": 0},
        "total_tests": {"type": "integer", "minimum": 0},
        "total_findings": {"type": "integer", "minimum": 0},
        "parse_failures": {"type": "integer", "minimum": 0},
        "rule_failures": {"type": "integer", "minimum": 0},
        "by_severity": {
          "type": "object",
          "additionalProperties": {"type": "integer", "minimum": 0}
        },
        "by_rule": {
          "type": "object",
          "additionalProperties": {"type": "integer", "minimum": 0}
        },
        "density": {
          "type": "object",
          "properties": {
            "mean": {"type": "number"},
            "std_dev": {"type": "number"},
            "median": {"type": "number"},
            "p90": {"type": "number"}
          }
        }
      }
    }
  }
}`
