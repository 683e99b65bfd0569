package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// JSONResponse sends a JSON response with the given status code
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse sends a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]interface{}{
		"error":   message,
		"success": false,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	JSONResponse(w, statusCode, response)
}

// SuccessResponse sends a JSON success response
func SuccessResponse(w http.ResponseWriter, message string, data interface{}) {
	response := map[string]interface{}{
		"message": message,
		"success": true,
	}
	if data != nil {
		response["data"] = data
	}
	JSONResponse(w, http.StatusOK, response)
}

// DecodeJSON decodes JSON from request body
func DecodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// lookupError maps lookup errors to a status and message
func lookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrInvalidKeyFormat):
		ErrorResponse(w, http.StatusBadRequest, "Invalid key format", err)
	case errors.Is(err, entity.ErrNoAdapters):
		ErrorResponse(w, http.StatusUnprocessableEntity, "No provider can handle this key", err)
	default:
		ErrorResponse(w, http.StatusInternalServerError, "Lookup failed", err)
	}
}
