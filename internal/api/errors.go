package api

import (
	"encoding/json"
	"net/http"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data) // nolint:errcheck // response already committed
	}
}

// respondMessage sends the message-shaped body the mini-app client
// expects: {"message": ...} plus any extra fields.
func respondMessage(w http.ResponseWriter, statusCode int, message string, extra map[string]interface{}) {
	body := map[string]interface{}{"message": message}
	for k, v := range extra {
		body[k] = v
	}
	respondJSON(w, statusCode, body)
}

// parseJSONBody parses a JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
