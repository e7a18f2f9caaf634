package encoder

import "fmt"

// EncodeError reports a failed or timed-out encoder subprocess. The stage
// distinguishes per-segment failures (which the orchestrator may recover
// from) from final mux failures (which it may not).
type EncodeError struct {
	Stage    string // "segment", "concat", "single"
	TimedOut bool
	Err      error
}

func (e *EncodeError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("encode %s timed out: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("encode %s failed: %v", e.Stage, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// IsEncodeError checks whether err originated from an encoder subprocess.
func IsEncodeError(err error) bool {
	_, ok := err.(*EncodeError)
	return ok
}
