package tts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voiceforge/voiceforge/tts/broadcast"
)

// collector is a threadsafe observer that records every delivered event.
type collector struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (c *collector) Deliver(e broadcast.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *collector) byType(kind string) []broadcast.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []broadcast.Event
	for _, e := range c.events {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestEstimateAudioSeconds(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"short text hits floor", "hi", 6.0},            // max(1*0.5, 3) * 2
		{"ten words", "a b c d e f g h i j", 10.0},      // 10*0.5 * 2
		{"long text hits cap", longWords(200), 30.0},    // clamped
		{"empty", "", 6.0},                              // floor * factor
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateAudioSeconds(tt.text); got != tt.want {
				t.Errorf("Expected %.1f, got %.1f", tt.want, got)
			}
		})
	}
}

func longWords(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += "word "
	}
	return s
}

func TestTokenBudget(t *testing.T) {
	// 10 words -> 10s of audio -> 860 tokens.
	if got := TokenBudget("a b c d e f g h i j"); got != 860 {
		t.Errorf("Expected 860 tokens, got %d", got)
	}
	// The cap bounds every budget.
	if got := TokenBudget(longWords(500)); got != int(MaxBudgetSeconds*TokensPerSecond) {
		t.Errorf("Expected capped budget, got %d", got)
	}
}

func TestPipelineGenerate(t *testing.T) {
	m := NewManager(nil)
	e := newFakeEngine("kokoro")
	m.Register(e)

	bus := broadcast.New()
	c := &collector{}
	bus.Subscribe(c)

	p := NewPipeline(m, bus)
	result, err := p.Generate(context.Background(), "kokoro", NewGenerationRequest("hello world"), nil)
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}
	if result.EngineUsed != "kokoro" {
		t.Errorf("Expected kokoro result, got %s", result.EngineUsed)
	}

	// The engine stays resident for the next request.
	if m.ActiveName() != "kokoro" {
		t.Errorf("Expected kokoro to stay active, got %q", m.ActiveName())
	}

	complete := c.byType("progress")
	if len(complete) == 0 {
		t.Fatal("Expected progress events")
	}
	last := complete[len(complete)-1]
	if last.Stage != "complete" || last.Percent == nil || *last.Percent != 1.0 {
		t.Errorf("Expected terminal complete event at 1.0, got %+v", last)
	}
}

func TestPipelineValidatesBeforeTouchingEngine(t *testing.T) {
	m := NewManager(nil)
	e := newFakeEngine("kokoro")
	m.Register(e)

	p := NewPipeline(m, nil)
	_, err := p.Generate(context.Background(), "kokoro", NewGenerationRequest("   "), nil)
	if !errors.Is(err, ErrEmptyText) {
		t.Fatalf("Expected ErrEmptyText, got %v", err)
	}

	loads, _, gens := e.counts()
	if loads != 0 || gens != 0 {
		t.Errorf("Expected engine untouched on invalid request, loads=%d gens=%d", loads, gens)
	}
}

func TestPipelineUnknownEngine(t *testing.T) {
	p := NewPipeline(NewManager(nil), nil)
	_, err := p.Generate(context.Background(), "bark", NewGenerationRequest("hello"), nil)
	if !errors.Is(err, ErrEngineNotFound) {
		t.Fatalf("Expected ErrEngineNotFound, got %v", err)
	}
}

func TestPipelineCancelsOnDeadClient(t *testing.T) {
	m := NewManager(nil)
	e := newFakeEngine("kokoro")
	e.genDelay = 5 * time.Second
	m.Register(e)

	bus := broadcast.New()
	c := &collector{}
	bus.Subscribe(c)

	p := NewPipeline(m, bus)
	p.SetPollInterval(10 * time.Millisecond)

	dead := func(context.Context) bool { return false }
	start := time.Now()
	result, err := p.Generate(context.Background(), "kokoro", NewGenerationRequest("hello world"), dead)
	if result != nil {
		t.Error("Expected no result from a cancelled run")
	}
	if !IsCancelled(err) {
		t.Fatalf("Expected cancellation, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected prompt cancellation, took %s", elapsed)
	}

	// The engine's state is indeterminate after a half-finished run, so
	// the model must be unloaded before the cancellation surfaces.
	if m.Active() != nil {
		t.Errorf("Expected engine unloaded after cancellation, got %q", m.ActiveName())
	}
	if _, unloads, _ := e.counts(); unloads != 1 {
		t.Errorf("Expected one unload, got %d", unloads)
	}
	if cancelled := c.byType("cancelled"); len(cancelled) != 1 {
		t.Errorf("Expected one cancelled event, got %d", len(cancelled))
	}
}

func TestPipelineGenerationFailureKeepsEngineLoaded(t *testing.T) {
	m := NewManager(nil)
	e := newFakeEngine("kokoro")
	e.failGen = true
	m.Register(e)

	bus := broadcast.New()
	c := &collector{}
	bus.Subscribe(c)

	p := NewPipeline(m, bus)
	_, err := p.Generate(context.Background(), "kokoro", NewGenerationRequest("hello world"), nil)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Expected ErrGenerationFailed, got %v", err)
	}

	// A failed generation is not a cancellation; the model stays loaded.
	if m.ActiveName() != "kokoro" {
		t.Errorf("Expected kokoro to stay active, got %q", m.ActiveName())
	}
	if errs := c.byType("error"); len(errs) != 1 {
		t.Errorf("Expected one error event, got %d", len(errs))
	}
}

func TestPipelineProgressIsMonotonic(t *testing.T) {
	m := NewManager(nil)
	e := newFakeEngine("kokoro")
	m.Register(e)

	bus := broadcast.New()
	c := &collector{}
	bus.Subscribe(c)

	p := NewPipeline(m, bus)
	if _, err := p.Generate(context.Background(), "kokoro", NewGenerationRequest("hello world"), nil); err != nil {
		t.Fatal(err)
	}

	prev := -1.0
	for _, ev := range c.byType("progress") {
		if ev.Percent == nil {
			continue
		}
		if *ev.Percent < prev {
			t.Errorf("Expected non-decreasing progress, got %.2f after %.2f", *ev.Percent, prev)
		}
		prev = *ev.Percent
	}
}

func TestPipelineHeartbeatRacesStayMonotonic(t *testing.T) {
	m := NewManager(nil)
	e := newFakeEngine("kokoro")
	e.progressSteps = 2000
	m.Register(e)

	bus := broadcast.New()
	c := &collector{}
	bus.Subscribe(c)

	// A heartbeat far faster than real deployments, contending with a
	// worker that reports progress in a tight loop.
	p := NewPipeline(m, bus)
	p.SetPollInterval(200 * time.Microsecond)

	if _, err := p.Generate(context.Background(), "kokoro", NewGenerationRequest("hello world"), nil); err != nil {
		t.Fatal(err)
	}

	prev := -1.0
	for _, ev := range c.byType("progress") {
		if ev.Percent == nil {
			continue
		}
		if *ev.Percent < prev {
			t.Errorf("Expected non-decreasing progress, got %.3f after %.3f", *ev.Percent, prev)
		}
		prev = *ev.Percent
	}
}
