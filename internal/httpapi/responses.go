package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/TravelMesh/read_layer/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeAppError renders a coded error as the stable
// {status, code, short, long} body.
func writeAppError(w http.ResponseWriter, err *apperr.Error) {
	writeJSON(w, err.Status, map[string]any{
		"status": err.Status,
		"code":   err.Code,
		"short":  err.Short,
		"long":   err.Long,
	})
}

// writeError renders any error, unwrapping coded ones.
func writeError(w http.ResponseWriter, err error) {
	if coded, ok := apperr.As(err); ok {
		writeAppError(w, coded)
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"status": http.StatusInternalServerError,
		"code":   "#internalError",
		"short":  "Internal server error",
		"long":   err.Error(),
	})
}
