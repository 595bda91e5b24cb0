package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Validator checks JSON documents against a compiled JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// ValidationError is one schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SchemaError collects every violation found in one document.
type SchemaError struct {
	Errors []ValidationError
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return "data validation failed: " + strings.Join(parts, "; ")
}

// NewValidator compiles schemaJSON.
func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// MustNewValidator is NewValidator for package-level schemas.
func MustNewValidator(schemaJSON string) *Validator {
	v, err := NewValidator(schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateBytes returns a *SchemaError when data violates the schema, or a
// plain error when data is not JSON at all.
func (v *Validator) ValidateBytes(data []byte) error {
	return v.validate(gojsonschema.NewBytesLoader(data))
}

// ValidateGo validates an already decoded value.
func (v *Validator) ValidateGo(data interface{}) error {
	return v.validate(gojsonschema.NewGoLoader(data))
}

func (v *Validator) validate(doc gojsonschema.JSONLoader) error {
	result, err := v.schema.Validate(doc)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]ValidationError, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		}
	}
	return &SchemaError{Errors: errs}
}
