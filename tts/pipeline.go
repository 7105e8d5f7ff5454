package tts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/voiceforge/voiceforge/tts/broadcast"
)

// Runaway-generation guard constants. Any token or duration budget derived
// from input text length is clamped so a misbehaving model cannot spin
// forever. ~86 codec tokens encode one second of audio.
const (
	SecondsPerWord   = 0.5
	MinBudgetSeconds = 3.0
	BudgetFactor     = 2.0
	MaxBudgetSeconds = 30.0
	TokensPerSecond  = 86
)

// EstimateAudioSeconds returns the clamped audio duration budget for text.
func EstimateAudioSeconds(text string) float64 {
	words := len(strings.Fields(text))
	est := float64(words) * SecondsPerWord
	if est < MinBudgetSeconds {
		est = MinBudgetSeconds
	}
	est *= BudgetFactor
	if est > MaxBudgetSeconds {
		est = MaxBudgetSeconds
	}
	return est
}

// TokenBudget returns the clamped generation token budget for text.
func TokenBudget(text string) int {
	return int(EstimateAudioSeconds(text) * TokensPerSecond)
}

// LivenessProbe reports whether the original caller is still connected.
// The pipeline polls it once per heartbeat cycle.
type LivenessProbe func(ctx context.Context) bool

// Pipeline runs potentially multi-minute generations as background work
// while reporting progress, detecting caller disconnects, and cancelling
// the underlying computation cooperatively.
type Pipeline struct {
	manager      *Manager
	bus          *broadcast.Broadcaster
	pollInterval time.Duration
	limiter      *rate.Limiter
}

// NewPipeline creates a pipeline publishing to bus. A nil bus disables
// progress fan-out.
func NewPipeline(manager *Manager, bus *broadcast.Broadcaster) *Pipeline {
	return &Pipeline{
		manager:      manager,
		bus:          bus,
		pollInterval: 5 * time.Second,
		// Engines may report progress far faster than observers care
		// about; cap fan-out at 4 events/sec with room for bursts.
		limiter: rate.NewLimiter(rate.Limit(4), 8),
	}
}

// SetPollInterval overrides the heartbeat/liveness poll cycle. Cancellation
// latency is bounded by this interval plus the worker's own check frequency.
func (p *Pipeline) SetPollInterval(d time.Duration) {
	p.pollInterval = d
}

func (p *Pipeline) publish(e broadcast.Event) {
	if p.bus == nil {
		return
	}
	// Terminal events always go out; intermediate ones are throttled.
	if e.Percent != nil && *e.Percent < 1.0 && !p.limiter.Allow() {
		return
	}
	p.bus.Publish(e)
}

type generateOutcome struct {
	result *GenerationResult
	err    error
}

// Generate activates the named engine and runs the request on it, polling
// for progress and caller liveness. A disconnected caller cancels the run
// cooperatively: the engine observes the cancellation at its next safe
// point, the model is unloaded (its state is indeterminate after a
// half-finished run), and ErrGenerationCancelled surfaces. A cancelled run
// never returns a result.
func (p *Pipeline) Generate(ctx context.Context, engineName string, req GenerationRequest, alive LivenessProbe) (*GenerationResult, error) {
	// Validation happens before any engine is touched.
	if err := req.Validate(); err != nil {
		return nil, err
	}

	engine, err := p.manager.Activate(ctx, engineName)
	if err != nil {
		return nil, err
	}

	token := NewCancelToken()
	gctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-token.Done():
			cancel()
		case <-gctx.Done():
		}
	}()

	// Progress from the worker is forwarded to observers, clamped to be
	// monotonically non-decreasing. The worker goroutine and the
	// heartbeat loop both touch the last fraction; publishing stays
	// inside the lock so no subscriber sees a percent go backwards.
	var (
		progressMu   sync.Mutex
		lastFraction float64
	)
	progress := func(fraction float64, stage string) {
		progressMu.Lock()
		defer progressMu.Unlock()
		if fraction < lastFraction {
			fraction = lastFraction
		}
		lastFraction = fraction
		p.publish(broadcast.Progress("generating", stage, fraction))
	}

	done := make(chan generateOutcome, 1)
	go func() {
		result, err := engine.Generate(gctx, req, progress)
		done <- generateOutcome{result, err}
	}()

	start := time.Now()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	var outcome generateOutcome
wait:
	for {
		select {
		case outcome = <-done:
			break wait
		case <-ticker.C:
			elapsed := time.Since(start).Round(time.Second)
			if alive != nil && !alive(ctx) && !token.IsSet() {
				log.Info("Client disconnected, cancelling generation",
					"engine", engine.Name(), "elapsed", elapsed)
				token.Cancel()
				continue
			}
			progressMu.Lock()
			p.publish(broadcast.Progress("generating",
				fmt.Sprintf("Generating with %s... (%s elapsed)", engine.Name(), elapsed),
				lastFraction))
			progressMu.Unlock()
		}
	}

	if token.IsSet() {
		// The model may have stopped mid-step; do not reuse it without
		// a fresh load.
		p.manager.Deactivate(ctx)
		p.publish(broadcast.Event{Type: "cancelled", Stage: "generating",
			Message: "Generation cancelled"})
		return nil, NewEngineError(engine.Name(), "generate", ErrGenerationCancelled)
	}
	if outcome.err != nil {
		p.publish(broadcast.Event{Type: "error", Stage: "generating",
			Message: outcome.err.Error()})
		return nil, outcome.err
	}

	p.publish(broadcast.Progress("complete",
		fmt.Sprintf("Generated %.1fs audio", outcome.result.DurationSeconds), 1.0))
	return outcome.result, nil
}
