package tts

import "sync"

// CancelToken signals cooperative cancellation to in-flight work. It is set
// exactly once and never reset; workers poll IsSet between generation steps
// and return a nil result instead of a partial artifact.
type CancelToken struct {
	once sync.Once
	done chan struct{}
}

// NewCancelToken returns an unset token.
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Cancel sets the token. Subsequent calls are no-ops.
func (t *CancelToken) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// IsSet reports whether the token has been cancelled.
func (t *CancelToken) IsSet() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the token is cancelled.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}
