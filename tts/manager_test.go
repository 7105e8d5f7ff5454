package tts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeEngine is a minimal in-process Engine for exercising the manager and
// pipeline. An optional shared journal records load/unload ordering across
// engines.
type fakeEngine struct {
	mu            sync.Mutex
	name          string
	unavailable   bool
	failLoad      bool
	failGen       bool
	genDelay      time.Duration
	progressSteps int
	loaded        bool

	loadCalls   int
	unloadCalls int
	genCalls    int

	journal *journal
}

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) record(entry string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func newFakeEngine(name string) *fakeEngine {
	return &fakeEngine{name: name}
}

func (f *fakeEngine) Name() string                 { return f.name }
func (f *fakeEngine) Description() string          { return "fake engine for tests" }
func (f *fakeEngine) Available() bool              { return !f.unavailable }
func (f *fakeEngine) RequiredVRAMGB() float64      { return 1.0 }
func (f *fakeEngine) SupportsVoiceCloning() bool   { return false }
func (f *fakeEngine) SupportsEmotionControl() bool { return false }
func (f *fakeEngine) Voices() []string             { return []string{"default"} }

func (f *fakeEngine) Load(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	if f.unavailable {
		f.journal.record("loadfail:" + f.name)
		return ErrEngineNotAvailable
	}
	if f.failLoad {
		f.journal.record("loadfail:" + f.name)
		return errors.New("weights missing")
	}
	f.loaded = true
	f.journal.record("load:" + f.name)
	return nil
}

func (f *fakeEngine) Unload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloadCalls++
	f.loaded = false
	f.journal.record("unload:" + f.name)
	return nil
}

func (f *fakeEngine) Generate(ctx context.Context, req GenerationRequest, progress ProgressFunc) (*GenerationResult, error) {
	f.mu.Lock()
	f.genCalls++
	loaded := f.loaded
	f.mu.Unlock()

	if !loaded {
		return nil, NewEngineError(f.name, "generate", ErrModelNotLoaded)
	}
	if f.failGen {
		return nil, NewEngineError(f.name, "generate", ErrGenerationFailed)
	}
	if f.progressSteps > 0 {
		for i := 1; i <= f.progressSteps; i++ {
			if ctx.Err() != nil {
				return nil, NewEngineError(f.name, "generate", ErrGenerationCancelled)
			}
			if progress != nil {
				progress(float64(i)/float64(f.progressSteps), "Step")
			}
		}
	} else if progress != nil {
		progress(0.1, "Starting...")
	}
	if f.genDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, NewEngineError(f.name, "generate", ErrGenerationCancelled)
		case <-time.After(f.genDelay):
		}
	}
	if f.progressSteps == 0 && progress != nil {
		progress(0.9, "Finishing...")
	}
	return &GenerationResult{
		AudioPath:       "fake://" + f.name + "/out.wav",
		SampleRate:      24000,
		DurationSeconds: 1.5,
		EngineUsed:      f.name,
	}, nil
}

func (f *fakeEngine) CloneVoice(context.Context, string, string, string) (*VoiceProfile, error) {
	return nil, NewEngineError(f.name, "clone", ErrUnsupportedOperation)
}

func (f *fakeEngine) counts() (loads, unloads, gens int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls, f.unloadCalls, f.genCalls
}

func TestManagerRegisterAndLookup(t *testing.T) {
	m := NewManager(nil)
	m.Register(newFakeEngine("kokoro"))
	m.Register(newFakeEngine("f5-tts"))

	e, err := m.Engine("kokoro")
	if err != nil {
		t.Fatalf("Expected lookup to succeed, got %v", err)
	}
	if e.Name() != "kokoro" {
		t.Errorf("Expected kokoro, got %s", e.Name())
	}

	if _, err := m.Engine("bark"); !errors.Is(err, ErrEngineNotFound) {
		t.Errorf("Expected ErrEngineNotFound, got %v", err)
	}
}

func TestManagerLookupSuggestion(t *testing.T) {
	m := NewManager(nil)
	m.Register(newFakeEngine("kokoro"))
	m.Register(newFakeEngine("fish-speech"))

	_, err := m.Engine("kokro")
	if !errors.Is(err, ErrEngineNotFound) {
		t.Fatalf("Expected ErrEngineNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "did you mean") || !strings.Contains(err.Error(), "kokoro") {
		t.Errorf("Expected a kokoro suggestion, got %q", err.Error())
	}
}

func TestManagerEnginesOrder(t *testing.T) {
	m := NewManager(nil)
	m.Register(newFakeEngine("kokoro"))
	m.Register(newFakeEngine("f5-tts"))
	m.Register(newFakeEngine("fish-speech"))

	descriptors := m.Engines()
	want := []string{"kokoro", "f5-tts", "fish-speech"}
	if len(descriptors) != len(want) {
		t.Fatalf("Expected %d engines, got %d", len(want), len(descriptors))
	}
	for i, d := range descriptors {
		if d.Name != want[i] {
			t.Errorf("Expected %s at index %d, got %s", want[i], i, d.Name)
		}
	}
}

func TestManagerActivate(t *testing.T) {
	m := NewManager(nil)
	a := newFakeEngine("kokoro")
	m.Register(a)

	e, err := m.Activate(context.Background(), "kokoro")
	if err != nil {
		t.Fatalf("Expected activation to succeed, got %v", err)
	}
	if e.Name() != "kokoro" {
		t.Errorf("Expected kokoro active, got %s", e.Name())
	}
	if m.ActiveName() != "kokoro" {
		t.Errorf("Expected active name kokoro, got %q", m.ActiveName())
	}

	state, owner := m.Tracker().Current()
	if state != ResourceActive || owner != "kokoro" {
		t.Errorf("Expected tracker active/kokoro, got %s/%s", state, owner)
	}
}

func TestManagerActivateIdempotent(t *testing.T) {
	m := NewManager(nil)
	a := newFakeEngine("kokoro")
	m.Register(a)

	ctx := context.Background()
	if _, err := m.Activate(ctx, "kokoro"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Activate(ctx, "kokoro"); err != nil {
		t.Fatal(err)
	}

	loads, unloads, _ := a.counts()
	if loads != 1 {
		t.Errorf("Expected exactly one load, got %d", loads)
	}
	if unloads != 0 {
		t.Errorf("Expected no unloads, got %d", unloads)
	}
}

func TestManagerSwitchUnloadsBeforeLoading(t *testing.T) {
	j := &journal{}
	m := NewManager(nil)
	a := newFakeEngine("kokoro")
	b := newFakeEngine("f5-tts")
	a.journal, b.journal = j, j
	m.Register(a)
	m.Register(b)

	ctx := context.Background()
	if _, err := m.Activate(ctx, "kokoro"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Activate(ctx, "f5-tts"); err != nil {
		t.Fatal(err)
	}

	want := []string{"load:kokoro", "unload:kokoro", "load:f5-tts"}
	got := j.snapshot()
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestManagerActivateLoadFailure(t *testing.T) {
	m := NewManager(nil)
	a := newFakeEngine("kokoro")
	b := newFakeEngine("f5-tts")
	b.failLoad = true
	m.Register(a)
	m.Register(b)

	ctx := context.Background()
	if _, err := m.Activate(ctx, "kokoro"); err != nil {
		t.Fatal(err)
	}

	_, err := m.Activate(ctx, "f5-tts")
	if !errors.Is(err, ErrLoadFailed) {
		t.Fatalf("Expected ErrLoadFailed, got %v", err)
	}

	// The previous engine was already unloaded; nothing is active now.
	if m.Active() != nil {
		t.Errorf("Expected no active engine after failed switch, got %s", m.ActiveName())
	}
	if _, unloads, _ := a.counts(); unloads != 1 {
		t.Errorf("Expected previous engine unloaded once, got %d", unloads)
	}
	if !m.Tracker().Idle() {
		state, owner := m.Tracker().Current()
		t.Errorf("Expected tracker idle after failed load, got %s/%s", state, owner)
	}
}

func TestManagerActivateResourceBusy(t *testing.T) {
	tracker := NewResourceTracker()
	tracker.Transition(ResourceLoading, "prompt:parler-mini-v1.1")
	tracker.Transition(ResourceActive, "prompt:parler-mini-v1.1")

	m := NewManager(tracker)
	m.Register(newFakeEngine("kokoro"))

	_, err := m.Activate(context.Background(), "kokoro")
	if !errors.Is(err, ErrResourceBusy) {
		t.Fatalf("Expected ErrResourceBusy, got %v", err)
	}
	if !strings.Contains(err.Error(), "prompt:parler-mini-v1.1") {
		t.Errorf("Expected error to name the owner, got %q", err.Error())
	}
}

func TestManagerSwitchToUnavailableEngine(t *testing.T) {
	m := NewManager(nil)
	a := newFakeEngine("kokoro")
	b := newFakeEngine("f5-tts")
	b.unavailable = true
	m.Register(a)
	m.Register(b)

	ctx := context.Background()
	if _, err := m.Activate(ctx, "kokoro"); err != nil {
		t.Fatal(err)
	}

	descriptors := m.Engines()
	if !descriptors[0].Loaded {
		t.Error("Expected kokoro to report loaded")
	}
	if descriptors[1].Available {
		t.Error("Expected f5-tts to report unavailable")
	}

	_, err := m.Activate(ctx, "f5-tts")
	if !errors.Is(err, ErrLoadFailed) {
		t.Fatalf("Expected ErrLoadFailed, got %v", err)
	}

	// kokoro was already unloaded during the handoff and does not come
	// back on its own.
	if m.Active() != nil {
		t.Errorf("Expected no active engine, got %q", m.ActiveName())
	}
	if descriptorLoaded(m.Engines(), "kokoro") {
		t.Error("Expected kokoro to report unloaded after failed switch")
	}
	if _, unloads, _ := a.counts(); unloads != 1 {
		t.Errorf("Expected 1 unload of kokoro, got %d", unloads)
	}
	if !m.Tracker().Idle() {
		state, owner := m.Tracker().Current()
		t.Errorf("Expected tracker idle after failed switch, got %v (%s)", state, owner)
	}
}

func descriptorLoaded(ds []EngineDescriptor, name string) bool {
	for _, d := range ds {
		if d.Name == name {
			return d.Loaded
		}
	}
	return false
}

func TestManagerDeactivateWhenIdle(t *testing.T) {
	m := NewManager(nil)
	m.Deactivate(context.Background()) // must be a safe no-op
	if !m.Tracker().Idle() {
		t.Error("Expected tracker to stay idle")
	}
}
