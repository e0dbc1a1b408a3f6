package parse

// ThreadState is the parser's per-worker scratch context. Kept
// as an explicit type, rather than reusing detect.ThreadState, so the two
// can fail and be released independently, matching the paired
// create/destroy contract detect.ThreadState also follows.
type ThreadState struct{}

// NewThreadState constructs a parser thread state.
func NewThreadState() (*ThreadState, error) {
	return &ThreadState{}, nil
}

// Destroy releases ts. A no-op today.
func (ts *ThreadState) Destroy() {}
