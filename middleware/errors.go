// ABOUTME: Shared JSON error writer for middleware rejections
// ABOUTME: Keeps middleware error bodies consistent with handler errors

package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/prit1626/IndiExport-B2B-sub001/models"
)

// writeJSONError writes a JSON error response with the given status code.
func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
