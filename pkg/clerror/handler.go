package clerror

import (
	"fmt"
	"io"
)

// Handler centralizes error reporting the way chemistry_lang's
// CHErrorHandler does: every statement error a script run reports passes
// through one Handler before it reaches the user, so the driver can
// decide its exit code from a single "had an error this run" flag
// instead of threading that state through every call site. The REPL
// prints its errors directly and does not use a Handler.
type Handler struct {
	out      io.Writer
	hadError bool
}

// NewHandler builds a Handler that writes reports to out (typically os.Stderr).
func NewHandler(out io.Writer) *Handler {
	return &Handler{out: out}
}

// Report prints err and marks the handler as having seen a failure.
func (h *Handler) Report(err error) {
	if err == nil {
		return
	}
	h.hadError = true
	fmt.Fprintln(h.out, err.Error())
}

// HadError reports whether Report has been called at least once since the
// last Reset.
func (h *Handler) HadError() bool {
	return h.hadError
}

// Reset clears the had-error flag.
func (h *Handler) Reset() {
	h.hadError = false
}
