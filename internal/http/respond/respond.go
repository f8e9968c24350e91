// Package respond writes JSON bodies and maps failures to status codes.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/gastos/internal/gasto"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
)

type errorResponse struct {
	Code     string   `json:"code"`
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
	Missing  []string `json:"missing,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error writes err with the status its kind maps to.
func Error(w http.ResponseWriter, err error) {
	status, body := Status(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
	}

	JSON(w, status, body)
}

// BadRequest reports a malformed request.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorResponse{Code: "badRequest", Error: msg})
}

func Status(err error) (int, errorResponse) {
	body := errorResponse{Code: "internal", Error: err.Error()}

	var (
		validation *gasto.ValidationError
		schema     *sharepoint.SchemaError
		partial    *sharepoint.PartialAttachmentError
		typed      *sharepoint.Error
	)

	if errors.As(err, &validation) {
		body.Code = "validation"
		body.Problems = validation.Problems

		return http.StatusUnprocessableEntity, body
	}

	if errors.As(err, &partial) {
		body.Code = string(sharepoint.CodePartialAttachment)
		body.Missing = partial.Failed

		return http.StatusMultiStatus, body
	}

	if errors.As(err, &schema) {
		body.Code = string(sharepoint.CodeColumnNotFound)
		body.Missing = schema.Missing

		return http.StatusInternalServerError, body
	}

	if !errors.As(err, &typed) {
		return http.StatusInternalServerError, body
	}

	body.Code = string(typed.Code)

	switch typed.Code {
	case sharepoint.CodeAuthRequired:
		return http.StatusUnauthorized, body
	case sharepoint.CodeListNotFound:
		return http.StatusNotFound, body
	case sharepoint.CodeLookupUnresolved:
		return http.StatusUnprocessableEntity, body
	case sharepoint.CodeRemoteRejected:
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}
