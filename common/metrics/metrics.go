package metrics

import (
	"net/http"

	"github.com/arl/statsviz"
)

// Serve exposes the runtime dashboard on addr under /debug/statsviz/.
// It blocks, so callers normally run it in its own goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		return err
	}
	return http.ListenAndServe(addr, mux)
}
