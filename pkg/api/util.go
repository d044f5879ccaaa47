package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set(HeaderContentType, ContentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, `{"error":"failed to encode response"}`)
		return
	}

	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(statusCode)
	w.Write(data)
}

// writeError writes an error JSON response
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, message string, metaMessages ...string) {
	writeJSON(w, r, statusCode, ErrorResponse{
		Error:        message,
		MetaMessages: metaMessages,
		RequestID:    getRequestID(r.Context()),
	})
}

// writeUtilsError writes an error response from a *utils.Error
func writeUtilsError(w http.ResponseWriter, r *http.Request, err error) {
	e := utils.AsError(err)
	statusCode := e.GetHTTPStatus()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	writeError(w, r, statusCode, e.Message)
}

// parseInt64Query parses an optional integer query parameter
func parseInt64Query(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return val, nil
}

// isValidRequestID accepts alphanumeric IDs with hyphens and underscores
func isValidRequestID(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range id {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_') {
			return false
		}
	}
	const maxIDLength = 128
	return len(id) <= maxIDLength
}
