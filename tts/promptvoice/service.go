// Package promptvoice generates brand new voices from plain text
// descriptions. It is the second exclusive owner of the synthesis device:
// loading a prompt-voice model evicts whatever engine the manager has
// resident, and the model is released again as soon as a preview finishes.
package promptvoice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/voiceforge/voiceforge/tts"
	"github.com/voiceforge/voiceforge/tts/broadcast"
)

const ownerPrefix = "prompt:"

// Service owns prompt-voice model lifecycle and preview generation. It
// shares the resource tracker with the engine manager so the two can never
// both hold the device.
type Service struct {
	mu           sync.Mutex
	cfg          tts.PromptVoiceConfig
	device       string
	previewsDir  string
	manager      *tts.Manager
	tracker      *tts.ResourceTracker
	bus          *broadcast.Broadcaster
	gen          Generator
	loaded       *Model
	busy         bool
	pollInterval time.Duration
}

// NewService wires a prompt-voice service against the manager's resource
// tracker. A nil bus disables progress fan-out.
func NewService(cfg tts.Config, manager *tts.Manager, bus *broadcast.Broadcaster, gen Generator) *Service {
	return &Service{
		cfg:          cfg.PromptVoice,
		device:       cfg.Device,
		previewsDir:  cfg.PreviewsDir,
		manager:      manager,
		tracker:      manager.Tracker(),
		bus:          bus,
		gen:          gen,
		pollInterval: cfg.PollInterval,
	}
}

// SetPollInterval overrides the heartbeat/liveness poll cycle.
func (s *Service) SetPollInterval(d time.Duration) {
	s.pollInterval = d
}

// Available reports whether the generation runtime is installed.
func (s *Service) Available() bool {
	return s.gen.Available()
}

// Loaded returns the resident model, if any.
func (s *Service) Loaded() (Model, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded == nil {
		return Model{}, false
	}
	return *s.loaded, true
}

func (s *Service) publish(e broadcast.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(e)
}

// Load makes modelID the resident model. Any engine held by the manager is
// evicted first; the manager will detect the takeover via the shared
// tracker and lazily reload on its next activation.
func (s *Service) Load(ctx context.Context, modelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, modelID)
}

func (s *Service) loadLocked(ctx context.Context, modelID string) error {
	if modelID == "" {
		modelID = DefaultModelID
	}
	model, ok := ModelByID(modelID)
	if !ok {
		return fmt.Errorf("%w: %q", tts.ErrUnknownModel, modelID)
	}
	if s.loaded != nil && s.loaded.ID == model.ID {
		return nil
	}
	if s.loaded != nil {
		s.unloadLocked(ctx)
	}

	// Take the device. The manager releases it synchronously inside
	// Deactivate, so the claim below only fails if a third party holds it.
	s.manager.Deactivate(ctx)
	owner := ownerPrefix + model.ID
	if !s.tracker.Transition(tts.ResourceLoading, owner) {
		_, holder := s.tracker.Current()
		return fmt.Errorf("%w: %s", tts.ErrResourceBusy, holder)
	}

	s.publish(broadcast.Progress("loading_model", "Checking model files...", 0.1))
	log.Info("Loading voice model", "model", model.ID, "vram_gb", model.VRAMGB)
	start := time.Now()

	s.publish(broadcast.Progress("loading_model",
		fmt.Sprintf("Loading %s into memory...", model.Name), 0.3))
	if err := s.gen.Load(ctx, model, s.device); err != nil {
		s.tracker.Transition(tts.ResourceIdle, "")
		s.publish(broadcast.Event{Type: "error", Stage: "loading_model", Message: err.Error()})
		log.Error("Voice model load failed", "model", model.ID, "error", err)
		return fmt.Errorf("%w: %s: %v", tts.ErrLoadFailed, model.ID, err)
	}
	s.publish(broadcast.Progress("loading_model", "Moving model to device...", 0.8))

	s.tracker.Transition(tts.ResourceActive, owner)
	s.loaded = &model
	s.publish(broadcast.Progress("loading_model", "Model ready", 1.0))
	log.Info("Voice model loaded", "model", model.ID, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// Unload releases the resident model and returns the device to idle. Safe
// to call when nothing is loaded.
func (s *Service) Unload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unloadLocked(ctx)
}

func (s *Service) unloadLocked(ctx context.Context) {
	if s.loaded == nil {
		return
	}
	owner := ownerPrefix + s.loaded.ID
	s.tracker.Transition(tts.ResourceUnloading, owner)
	log.Info("Unloading voice model", "model", s.loaded.ID)
	if err := s.gen.Unload(ctx); err != nil {
		log.Warn("Voice model unload reported error", "model", s.loaded.ID, "error", err)
	}
	s.loaded = nil
	s.tracker.Transition(tts.ResourceIdle, "")
}

type previewOutcome struct {
	err error
}

// GeneratePreview synthesizes the configured sample sentence in a voice
// described by plain text, loading the requested model on demand. The run
// is polled for caller liveness like any long generation; a disconnected
// caller cancels it cooperatively and the half-finished model is unloaded
// before ErrGenerationCancelled surfaces. After a successful preview the
// model is unloaded too, handing the device straight back to the engines.
func (s *Service) GeneratePreview(ctx context.Context, modelID, description string, alive tts.LivenessProbe) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("%w: voice description", tts.ErrEmptyText)
	}

	// One preview at a time; concurrent calls would race over the single
	// resident model.
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return "", tts.ErrServiceBusy
	}
	s.busy = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	if err := s.Load(ctx, modelID); err != nil {
		return "", err
	}

	outPath, err := s.previewPath()
	if err != nil {
		return "", err
	}

	token := tts.NewCancelToken()
	gctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-token.Done():
			cancel()
		case <-gctx.Done():
		}
	}()

	req := PreviewRequest{
		Description: description,
		Text:        s.cfg.SampleText,
		MaxTokens:   tts.TokenBudget(s.cfg.SampleText),
		OutputPath:  outPath,
	}

	done := make(chan previewOutcome, 1)
	go func() {
		done <- previewOutcome{err: s.gen.Generate(gctx, req)}
	}()

	s.publish(broadcast.Progress("generating", "Generating voice preview...", 0.1))
	start := time.Now()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var outcome previewOutcome
wait:
	for {
		select {
		case outcome = <-done:
			break wait
		case <-ticker.C:
			elapsed := time.Since(start).Round(time.Second)
			if alive != nil && !alive(ctx) && !token.IsSet() {
				log.Info("Client disconnected, cancelling preview", "elapsed", elapsed)
				token.Cancel()
				continue
			}
			s.publish(broadcast.Progress("generating",
				fmt.Sprintf("Generating voice preview... (%s elapsed)", elapsed), 0.5))
		}
	}

	if token.IsSet() {
		s.Unload(ctx)
		s.publish(broadcast.Event{Type: "cancelled", Stage: "generating",
			Message: "Preview generation cancelled"})
		return "", tts.ErrGenerationCancelled
	}
	if outcome.err != nil {
		s.publish(broadcast.Event{Type: "error", Stage: "generating",
			Message: outcome.err.Error()})
		return "", outcome.err
	}

	// Previews are one-shot; free the device immediately so engine
	// requests do not pay an eviction on their next activation.
	s.Unload(ctx)
	s.publish(broadcast.Progress("complete", "Voice preview ready", 1.0))
	return outPath, nil
}

// previewPath returns previews/<yyyymmdd>/preview_<id>.wav, creating the
// dated directory.
func (s *Service) previewPath() (string, error) {
	dir := filepath.Join(s.previewsDir, time.Now().Format("20060102"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return filepath.Join(dir, "preview_"+id+".wav"), nil
}
