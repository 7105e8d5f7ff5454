package tts

import "sync"

// ResourceState represents who, if anyone, holds the shared device memory.
type ResourceState int

const (
	// ResourceIdle indicates nothing is resident.
	ResourceIdle ResourceState = iota
	// ResourceLoading indicates a model is being brought into memory.
	ResourceLoading
	// ResourceActive indicates exactly one model is resident.
	ResourceActive
	// ResourceUnloading indicates the resident model is being released.
	ResourceUnloading
)

// String returns the string representation of the state.
func (s ResourceState) String() string {
	switch s {
	case ResourceIdle:
		return "idle"
	case ResourceLoading:
		return "loading"
	case ResourceActive:
		return "active"
	case ResourceUnloading:
		return "unloading"
	default:
		return "unknown"
	}
}

// ResourceTracker is the state machine guarding the shared device memory
// pool. Both the engine manager and the prompt-voice service transition
// through one tracker, so "at most one Active owner" holds across both.
type ResourceTracker struct {
	mu          sync.Mutex
	current     ResourceState
	owner       string // name of the loading/active/unloading model
	transitions map[ResourceState][]ResourceState
}

// NewResourceTracker creates a tracker in the idle state.
func NewResourceTracker() *ResourceTracker {
	return &ResourceTracker{
		current: ResourceIdle,
		transitions: map[ResourceState][]ResourceState{
			ResourceIdle:      {ResourceLoading},
			ResourceLoading:   {ResourceActive, ResourceIdle},
			ResourceActive:    {ResourceUnloading},
			ResourceUnloading: {ResourceIdle},
		},
	}
}

// Transition attempts to move to the given state on behalf of owner.
// It returns false when the transition is not in the table.
func (t *ResourceTracker) Transition(to ResourceState, owner string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	valid := false
	for _, s := range t.transitions[t.current] {
		if s == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	t.current = to
	if to == ResourceIdle {
		t.owner = ""
	} else {
		t.owner = owner
	}
	return true
}

// Current returns the current state and its owner ("" when idle).
func (t *ResourceTracker) Current() (ResourceState, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.owner
}

// Idle reports whether the resource is free to claim.
func (t *ResourceTracker) Idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current == ResourceIdle
}
