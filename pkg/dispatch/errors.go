package dispatch

import (
	"fmt"
	"strings"

	"github.com/modelmux/modelmux/pkg/dispatch/health"
)

// ErrorContext wraps a failed dispatch with everything a caller needs to
// react: how the failure classified, whether retrying the same model makes
// sense, and which models could take over.
type ErrorContext struct {
	ModelID      string
	Err          error
	Status       health.Status
	Retryable    bool
	Alternatives []string
}

func (e *ErrorContext) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dispatch to %s failed (%s): %v", e.ModelID, e.Status, e.Err)
	if len(e.Alternatives) > 0 {
		fmt.Fprintf(&b, "; alternatives: %s", strings.Join(e.Alternatives, ", "))
	}
	return b.String()
}

func (e *ErrorContext) Unwrap() error { return e.Err }
