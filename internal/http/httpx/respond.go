// Package httpx writes the JSON envelope every API route answers with.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wolfman30/coaching-booking-platform/internal/apperr"
)

const maxBodyBytes = 1 << 20

// Envelope is the response body shape shared by all routes.
type Envelope struct {
	Success  bool       `json:"success"`
	Data     any        `json:"data,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
	Error    *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failure without leaking internal causes.
type ErrorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK answers 200 with success=true.
func OK(w http.ResponseWriter, data any, warnings ...string) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Warnings: warnings})
}

// Fail answers with the status mapped from err's kind and success=false.
// data may carry a partial result, such as a probe outcome.
func Fail(w http.ResponseWriter, err error, data any) {
	kind := apperr.KindOf(err)
	JSON(w, apperr.HTTPStatus(kind), Envelope{
		Success: false,
		Data:    data,
		Error:   &ErrorBody{Kind: kind, Message: apperr.MessageOf(err)},
	})
}

// DecodeJSON decodes a bounded request body into target. Malformed input is a
// validation error.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Wrap(apperr.KindValidation, "invalid json body", err)
	}
	return nil
}
