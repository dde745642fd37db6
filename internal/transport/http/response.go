package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"rextro-quiz-service/internal/domain"
)

// ErrCode identifies an error class in responses.
type ErrCode string

const (
	CodeInvalidArgument ErrCode = "INVALID_ARGUMENT"
	CodeNotFound        ErrCode = "NOT_FOUND"
	CodeConflict        ErrCode = "CONFLICT"
	CodeInternal        ErrCode = "INTERNAL_ERROR"
)

type envelope struct {
	Data  any        `json:"data"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// StatusFor maps an error kind to an HTTP status and code.
func StatusFor(err error) (int, ErrCode) {
	switch domain.Kind(err) {
	case domain.ErrInvalidArgument:
		return http.StatusBadRequest, CodeInvalidArgument
	case domain.ErrNotFound:
		return http.StatusNotFound, CodeNotFound
	case domain.ErrConflict:
		return http.StatusConflict, CodeConflict
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// errorBodyFor hides internal causes from clients.
func errorBodyFor(err error) (int, *errorBody) {
	status, code := StatusFor(err)
	msg := err.Error()
	if code == CodeInternal {
		msg = "internal server error"
	}
	body := &errorBody{Code: code, Message: msg}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body.Message = "validation failed"
		body.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			body.Fields[fe.Field()] = fe.Tag()
		}
	}
	return status, body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

func writeError(w http.ResponseWriter, err error, data any) {
	status, body := errorBodyFor(err)
	writeJSON(w, status, envelope{Data: data, Error: body})
}
