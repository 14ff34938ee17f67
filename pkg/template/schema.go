package template

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/template_set.schema.json
var templateSetSchema []byte

// ErrSchemaViolation indicates a template set document failed validation.
var ErrSchemaViolation = errors.New("template set schema violation")

// ValidateJSON validates a serialized template set against the embedded
// schema. Template sets are user-editable, so loading validates first.
func ValidateJSON(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(templateSetSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate template set: %w", err)
	}

	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(issues, "; "))
}
