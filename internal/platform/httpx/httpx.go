// Package httpx reúne los helpers JSON que antes se duplicaban en cada handler.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pura-pata-api/internal/domain/apperr"
)

// ErrorResponse es el cuerpo de toda respuesta de error.
type ErrorResponse struct {
	Detail string              `json:"detail"`
	Code   string              `json:"code"`
	Fields []apperr.FieldError `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError traduce errores de dominio a status HTTP + code estable.
func WriteError(w http.ResponseWriter, err error) {
	status, code := Classify(err)

	resp := ErrorResponse{Detail: err.Error(), Code: code}
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Fields
	}
	if status == http.StatusInternalServerError {
		// no filtrar detalles internos
		resp.Detail = "internal error"
	}

	WriteJSON(w, status, resp)
}

// Classify devuelve status y code para err.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperr.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, apperr.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "status_conflict"
	case errors.Is(err, apperr.ErrUpstream):
		return http.StatusBadGateway, "upstream_failure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// DecodeJSON decodifica el body en v. Body vacío o JSON inválido => ErrValidation.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("body", "request body is required")
		}
		return apperr.Invalid("body", "invalid json: "+err.Error())
	}
	return nil
}
