// Package handlers exposes the workspace over JSON HTTP endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/dvloznov/finance-insights/internal/advice"
	"github.com/dvloznov/finance-insights/internal/api/middleware"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/workspace"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// NewValidator returns a validator that reports JSON field names and knows
// the "category" tag, which accepts any known category case-insensitively.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		name := strings.TrimSpace(fl.Field().String())
		for _, c := range domain.CategoryNames() {
			if strings.EqualFold(name, c) {
				return true
			}
		}
		return false
	})

	return v
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// decodeAndValidate reads a JSON body into dst and validates it. It writes
// the error response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := v.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	fields := make([]FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, FieldError{Field: fe.Field(), Message: validationMessage(fe)})
	}
	middleware.WriteErrorDetails(w, http.StatusBadRequest, "Validation failed", fields)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "ne":
		return fmt.Sprintf("%s must not be %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %s", fe.Field(), fe.Param())
	case "category":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.Join(domain.CategoryNames(), ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// writeWorkspaceError maps workspace failures to status codes: busy is 409,
// rejected input is 400 and collaborator failures are 502.
func writeWorkspaceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, workspace.ErrBusy):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workspace.ErrInvalidTarget), errors.Is(err, advice.ErrNoSavingsTarget):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, workspace.ErrIngestionFailed), errors.Is(err, workspace.ErrAdviceFailed):
		middleware.WriteError(w, http.StatusBadGateway, err.Error())
	default:
		log.Error().Err(err).Msg("Unexpected workspace error")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
