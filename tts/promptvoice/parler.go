package promptvoice

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/voiceforge/voiceforge/tts"
	"github.com/voiceforge/voiceforge/tts/engines"
)

// PreviewRequest carries one preview synthesis job.
type PreviewRequest struct {
	Description string
	Text        string
	MaxTokens   int
	OutputPath  string
}

// Generator abstracts the model runtime so the service can be exercised
// without the real binary installed.
type Generator interface {
	Available() bool
	Load(ctx context.Context, model Model, device string) error
	Unload(ctx context.Context) error
	Generate(ctx context.Context, req PreviewRequest) error
}

// parlerGenerator shells out to the parler-tts CLI, one process per call.
type parlerGenerator struct {
	cfg    tts.PromptVoiceConfig
	model  Model
	device string
}

// NewParlerGenerator returns a Generator backed by the configured binary.
func NewParlerGenerator(cfg tts.PromptVoiceConfig) Generator {
	return &parlerGenerator{cfg: cfg}
}

func (g *parlerGenerator) Available() bool {
	return engines.BinaryInstalled(g.cfg.Binary)
}

func (g *parlerGenerator) Load(ctx context.Context, model Model, device string) error {
	cmd := exec.CommandContext(ctx, g.cfg.Binary,
		"--model", model.HFName,
		"--device", device,
		"--warmup")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	g.model = model
	g.device = device
	return nil
}

func (g *parlerGenerator) Unload(ctx context.Context) error {
	// A one-shot process holds nothing between calls.
	return nil
}

func (g *parlerGenerator) Generate(ctx context.Context, req PreviewRequest) error {
	args := []string{
		"--model", g.model.HFName,
		"--device", g.device,
		"--description", req.Description,
		"--max-tokens", strconv.Itoa(req.MaxTokens),
		"--output", req.OutputPath,
	}
	cmd := exec.CommandContext(ctx, g.cfg.Binary, args...)
	cmd.Stdin = bytes.NewReader([]byte(req.Text))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Debug("Running preview generation", "binary", g.cfg.Binary, "output", req.OutputPath)
	if err := cmd.Run(); err != nil {
		_ = os.Remove(req.OutputPath)
		if ctx.Err() != nil {
			return tts.ErrGenerationCancelled
		}
		return fmt.Errorf("%w: %s: %s", tts.ErrGenerationFailed, err, bytes.TrimSpace(stderr.Bytes()))
	}
	if ctx.Err() != nil {
		_ = os.Remove(req.OutputPath)
		return tts.ErrGenerationCancelled
	}
	return nil
}
