package routes

import (
	"net/http"

	"github.com/go-barry/pagebridge/core"
)

// Data answers with a fixed payload; the request body is never read.
func Data(w http.ResponseWriter, r *http.Request) {
	_ = core.WriteJSON(w, http.StatusOK, map[string]string{"dollars": "$7,000"})
}
