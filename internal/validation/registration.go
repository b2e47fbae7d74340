package validation

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jask/creditofacil/internal/api"
)

//go:embed registration.schema.json
var registrationSchema []byte

var registrationLoader = gojsonschema.NewBytesLoader(registrationSchema)

// FieldError is one problem with one form field. Field uses the backend's
// names ("cpf", "garantias.0.tipo").
type FieldError struct {
	Field   string
	Message string
}

// Error collects every field problem found in a form.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation: " + strings.Join(parts, "; ")
}

// For returns the message for field, or "" when the field is fine.
func (e *Error) For(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

var fieldOrder = map[string]int{
	"nome_completo":     0,
	"cpf":               1,
	"endereco_completo": 2,
	"telefone":          3,
	"email":             4,
	"tem_garantia":      5,
	"garantias":         6,
}

// ValidateRegistration checks the form before it is sent to the backend.
// It returns nil or a *Error.
func ValidateRegistration(form api.RegistrationForm) error {
	result, err := gojsonschema.Validate(registrationLoader, gojsonschema.NewGoLoader(form))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	seen := map[string]bool{}
	var out []FieldError
	for _, desc := range result.Errors() {
		field := fieldPath(desc)
		if seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, FieldError{Field: field, Message: message(desc)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Field) < rank(out[j].Field)
	})
	return &Error{Fields: out}
}

func fieldPath(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok {
			if field == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY {
				return prop
			}
			return field + "." + prop
		}
	}
	return field
}

func rank(field string) int {
	top, _, _ := strings.Cut(field, ".")
	if r, ok := fieldOrder[top]; ok {
		return r
	}
	return len(fieldOrder)
}

func message(desc gojsonschema.ResultError) string {
	switch desc.Type() {
	case "required", "pattern":
		return "campo obrigatório"
	case "format":
		return "formato inválido"
	case "string_lte":
		return "texto muito longo"
	case "enum":
		return "tipo de bem inválido"
	case "number_gte":
		return "valor não pode ser negativo"
	default:
		return desc.Description()
	}
}
