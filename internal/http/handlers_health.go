package httpx

import (
	"io"
	"net/http"
)

const healthResponse = `{"status":"ok","service":"opsdeck"}`

// healthHandler answers readiness/liveness probes. HEAD gets the headers only.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	// A write failure here means the probe client hung up; nothing to do.
	_, _ = io.WriteString(w, healthResponse)
}
