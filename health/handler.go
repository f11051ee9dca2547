package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves the status returned by fn as JSON. Unhealthy answers 503,
// healthy and degraded answer 200.
func Handler(fn func() Status) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		st := fn()

		code := http.StatusOK
		if st.IsUnhealthy() {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(st)
	})
}
