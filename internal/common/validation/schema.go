// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"propguard-workers/pkg/registry"
)

// Violation is one schema failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error lists every violation found in one document.
type Error struct {
	TaskType   string      `json:"taskType"`
	Violations []Violation `json:"violations"`
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return fmt.Sprintf("%s variables invalid: %s", e.TaskType, strings.Join(parts, "; "))
}

// Validator checks job variables against the input schemas of the activity
// registry. Task types without a schema are accepted as-is.
type Validator struct {
	schemas    map[string]*gojsonschema.Schema
	activities map[string]registry.Activity
}

// NewValidator compiles every input schema in reg.
func NewValidator(reg *registry.ActivityRegistry) (*Validator, error) {
	v := &Validator{
		schemas:    map[string]*gojsonschema.Schema{},
		activities: map[string]registry.Activity{},
	}
	if reg == nil {
		return v, nil
	}
	for _, a := range reg.Activities {
		v.activities[a.TaskType] = a
		if len(a.InputSchema) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(a.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("compile input schema for %s: %w", a.TaskType, err)
		}
		v.schemas[a.TaskType] = schema
	}
	return v, nil
}

// Has reports whether taskType has a compiled schema.
func (v *Validator) Has(taskType string) bool {
	if v == nil {
		return false
	}
	_, ok := v.schemas[taskType]
	return ok
}

// Declares reports whether the registry lists code for taskType. Unregistered
// task types declare everything.
func (v *Validator) Declares(taskType, code string) bool {
	if v == nil {
		return true
	}
	a, ok := v.activities[taskType]
	if !ok || len(a.ErrorCodes) == 0 {
		return true
	}
	return a.Declares(code)
}

// ValidateJSON validates a raw JSON document for taskType.
func (v *Validator) ValidateJSON(taskType string, doc []byte) error {
	if !v.Has(taskType) {
		return nil
	}
	return v.validate(taskType, gojsonschema.NewBytesLoader(doc))
}

// ValidateMap validates decoded variables for taskType.
func (v *Validator) ValidateMap(taskType string, doc map[string]interface{}) error {
	if !v.Has(taskType) {
		return nil
	}
	return v.validate(taskType, gojsonschema.NewGoLoader(doc))
}

func (v *Validator) validate(taskType string, doc gojsonschema.JSONLoader) error {
	result, err := v.schemas[taskType].Validate(doc)
	if err != nil {
		return &Error{TaskType: taskType, Violations: []Violation{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "MALFORMED_DOCUMENT",
		}}}
	}
	if result.Valid() {
		return nil
	}

	out := &Error{TaskType: taskType}
	for _, re := range result.Errors() {
		out.Violations = append(out.Violations, Violation{
			Field:   re.Field(),
			Message: re.Description(),
			Code:    strings.ToUpper(re.Type()),
		})
	}
	return out
}

// CheckSchema compiles a single schema document without keeping it.
func CheckSchema(schema map[string]interface{}) error {
	_, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	return err
}
