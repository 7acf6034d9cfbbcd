package binding

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	validatorV10 "github.com/go-playground/validator/v10"
)

type BindError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e BindError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s' %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

type ValidationErrors []BindError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve[0].Error())
}

// Values decodes form values into v using `form` tags. It does not validate;
// forms run their own validator so violations can be translated.
func Values(values url.Values, v any) error {
	return NewParser("form").Parse(values, v)
}

// Query binds the URL query into v using `query` tags, then validates it.
func Query(r *http.Request, v any) error {
	if err := NewParser("query").Parse(r.URL.Query(), v); err != nil {
		return err
	}
	return validate(v)
}

func validate(v any) error {
	validator, tr := apiValidation()
	err := validator.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validatorV10.ValidationErrors
	if errors.As(err, &validationErrors) {
		bindErrors := make(ValidationErrors, 0, len(validationErrors))
		for _, ve := range validationErrors {
			bindErrors = append(bindErrors, BindError{
				Type:    "validation_error",
				Field:   ve.Field(),
				Message: violationMessage(tr, ve),
			})
		}
		return bindErrors
	}
	return &BindError{Type: "validation_error", Message: err.Error()}
}
