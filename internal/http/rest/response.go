package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/bwise1/querydesk/util"
	"github.com/bwise1/querydesk/util/tracing"
	"github.com/bwise1/querydesk/util/values"
)

// ServerResponse is the envelope of every JSON API response.
type ServerResponse struct {
	Message    string            `json:"message"`
	Status     string            `json:"status"`
	StatusCode int               `json:"-"`
	Data       interface{}       `json:"data,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	if resp == nil {
		return
	}
	respByte, err := json.Marshal(resp)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

// formError reports a problem with a single submitted field that the
// validator cannot see, such as a taken username.
type formError struct {
	field   string
	message string
}

func (e formError) Error() string {
	return e.field + ": " + e.message
}

// fieldErrors returns the per-field messages carried by err, or nil.
func fieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}
	if fields := util.FieldErrors(err); fields != nil {
		return fields
	}
	var fe formError
	if errors.As(err, &fe) {
		return map[string]string{fe.field: fe.message}
	}
	return nil
}

func respondWithError(err error, message, status string, tc *tracing.Context) *ServerResponse {
	code := util.StatusCode(status)
	if err != nil && code >= http.StatusInternalServerError {
		log.Printf("[%s] %s: %v", tc.RequestID, message, err)
	}
	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: code,
		Errors:     fieldErrors(err),
	}
}

func writeJSONResponse(w http.ResponseWriter, body []byte, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Printf("unable to write response: %v", err)
	}
}

func writeErrorResponse(w http.ResponseWriter, err error, status, message string) {
	if err != nil {
		log.Printf("%s: %v", message, err)
	}
	body, _ := json.Marshal(ServerResponse{Message: message, Status: status})
	writeJSONResponse(w, body, util.StatusCode(status))
}
