package workloads

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const fibonacciSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "fibonacci tasks",
  "type": "array",
  "items": {"type": "integer", "minimum": 0, "maximum": 92}
}`

const fetchSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "fetch tasks",
  "type": "array",
  "items": {
    "oneOf": [
      {"type": "string", "minLength": 1},
      {
        "type": "object",
        "required": ["url"],
        "additionalProperties": false,
        "properties": {
          "url": {"type": "string", "minLength": 1},
          "timeout_ms": {"type": "integer", "minimum": 0}
        }
      }
    ]
  }
}`

const matrixSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "matrix tasks",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["size"],
    "additionalProperties": false,
    "properties": {
      "size": {"type": "integer", "minimum": 1, "maximum": 4096},
      "rounds": {"type": "integer", "minimum": 1, "maximum": 10000},
      "seed": {"type": "integer", "minimum": 0}
    }
  }
}`

// TaskFileError points at the first offending value in a task file.
type TaskFileError struct {
	Workload string
	Path     string
	Message  string
}

func (e *TaskFileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s tasks: %s", e.Workload, e.Message)
	}
	return fmt.Sprintf("%s tasks: %s: %s", e.Workload, e.Path, e.Message)
}

// LoadTaskFile reads a task file from disk.
func LoadTaskFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	return data, nil
}

func validateTasks(workload, schemaText string, data []byte) error {
	compiler := jsonschema.NewCompiler()
	url := "mem://" + workload + ".schema.json"
	if err := compiler.AddResource(url, strings.NewReader(schemaText)); err != nil {
		return fmt.Errorf("load %s schema: %w", workload, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("compile %s schema: %w", workload, err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return &TaskFileError{Workload: workload, Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := schema.Validate(doc); err != nil {
		return schemaError(workload, err)
	}
	return nil
}

func schemaError(workload string, err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &TaskFileError{Workload: workload, Message: err.Error()}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return &TaskFileError{
		Workload: workload,
		Path:     instancePath(leaf.InstanceLocation),
		Message:  leaf.Message,
	}
}

// instancePath renders a JSON pointer such as "/1/size" as "[1].size".
func instancePath(ptr string) string {
	ptr = strings.TrimPrefix(strings.TrimPrefix(ptr, "#"), "/")
	if ptr == "" {
		return ""
	}
	var b strings.Builder
	for _, token := range strings.Split(ptr, "/") {
		token = strings.NewReplacer("~1", "/", "~0", "~").Replace(token)
		if token == "" {
			continue
		}
		if _, err := strconv.Atoi(token); err == nil {
			b.WriteString("[" + token + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(token)
	}
	return b.String()
}
