package detect

// ThreadState is the detector's per-worker scratch context. It
// is currently stateless: Engine.Detect takes no mutable per-thread
// buffers. It exists so callers have a symmetric create/destroy handle to
// pair with parse.ThreadState, and so a future stateful pattern table (e.g.
// a compiled Aho-Corasick scratch buffer) has somewhere to live without
// changing the ThreadCtx shape.
type ThreadState struct{}

// NewThreadState constructs a detector thread state. It cannot currently
// fail, but returns an error to match the fallible create()/destroy()
// contract shared with parse.ThreadState.
func NewThreadState() (*ThreadState, error) {
	return &ThreadState{}, nil
}

// Destroy releases ts. A no-op today.
func (ts *ThreadState) Destroy() {}
