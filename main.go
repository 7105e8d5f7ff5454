// Package main provides the entry point for the VoiceForge CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/voiceforge/voiceforge/tts"
	"github.com/voiceforge/voiceforge/tts/broadcast"
	"github.com/voiceforge/voiceforge/tts/engines/f5"
	"github.com/voiceforge/voiceforge/tts/engines/fishspeech"
	"github.com/voiceforge/voiceforge/tts/engines/kokoro"
	"github.com/voiceforge/voiceforge/tts/promptvoice"
	"github.com/voiceforge/voiceforge/tts/voices"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile  string
	engineName  string
	voiceName   string
	emotion     string
	speed       float64
	temperature float64
	seed        int64
	format      string

	rootCmd = &cobra.Command{
		Use:   "voiceforge [TEXT]",
		Short: "Turn text into speech, locally",
		Long: paragraph(
			fmt.Sprintf("\nTurn text into %s with locally hosted models. One engine holds the GPU at a time; voiceforge swaps them for you.", keyword("speech")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		RunE:             execute,
	}
)

// textFromArgs resolves the text to synthesize from the argument, a literal
// "-", or a pipe on stdin.
func textFromArgs(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}

	pipe, err := stdinIsPipe()
	if err != nil {
		return "", err
	}
	if pipe || (len(args) == 1 && args[0] == "-") {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("unable to read from stdin: %w", err)
		}
		return string(b), nil
	}
	return "", errors.New("missing text to synthesize (pass it as an argument, or pipe it in)")
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// runtime bundles the wired synthesis core for one CLI invocation.
type runtime struct {
	cfg      tts.Config
	library  *voices.DirLibrary
	watcher  *voices.Watcher
	manager  *tts.Manager
	bus      *broadcast.Broadcaster
	pipeline *tts.Pipeline
	prompt   *promptvoice.Service
}

// close releases resources held for the invocation.
func (rt *runtime) close() {
	if rt.watcher != nil {
		_ = rt.watcher.Close()
	}
}

// buildRuntime loads configuration and wires engines, manager, pipeline,
// and the prompt-voice service together.
func buildRuntime() (*runtime, error) {
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	library := voices.NewDirLibrary(cfg.VoicesDir)
	// Voices imported by external tooling mid-run still show up.
	watcher, err := voices.Watch(library)
	if err != nil {
		log.Warn("Voice library watching disabled", "error", err)
	}

	manager := tts.NewManager(tts.NewResourceTracker())
	manager.Register(kokoro.New(cfg.Kokoro, cfg.OutputsDir))
	manager.Register(f5.New(cfg.F5, library, cfg.ModelsDir, cfg.OutputsDir))
	manager.Register(fishspeech.New(cfg.FishSpeech, library, cfg.ModelsDir, cfg.OutputsDir))

	bus := broadcast.New()
	pipeline := tts.NewPipeline(manager, bus)
	pipeline.SetPollInterval(cfg.PollInterval)

	prompt := promptvoice.NewService(cfg, manager, bus, promptvoice.NewParlerGenerator(cfg.PromptVoice))

	return &runtime{
		cfg:      cfg,
		library:  library,
		watcher:  watcher,
		manager:  manager,
		bus:      bus,
		pipeline: pipeline,
		prompt:   prompt,
	}, nil
}

// subscribeProgress prints progress events to stderr while a TTY is
// attached. Returns an unsubscribe func.
func (rt *runtime) subscribeProgress() func() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}
	h := rt.bus.Subscribe(broadcast.ObserverFunc(func(e broadcast.Event) error {
		switch e.Type {
		case "error":
			fmt.Fprintf(os.Stderr, "%s %s\n", keyword("!"), e.Message)
		case "cancelled":
			fmt.Fprintf(os.Stderr, "%s %s\n", keyword("×"), e.Message)
		default:
			if e.Percent != nil {
				fmt.Fprintf(os.Stderr, "%s %s %s\n", keyword("•"), e.Message,
					subtle(fmt.Sprintf("%3.0f%%", *e.Percent*100)))
			} else {
				fmt.Fprintf(os.Stderr, "%s %s\n", keyword("•"), e.Message)
			}
		}
		return nil
	}))
	return func() { rt.bus.Unsubscribe(h) }
}

func execute(cmd *cobra.Command, args []string) error {
	text, err := textFromArgs(args)
	if err != nil {
		return err
	}

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	defer rt.subscribeProgress()()

	req := tts.NewGenerationRequest(text)
	req.Emotion = emotion
	req.Speed = speed
	req.Temperature = temperature
	req.Format = format
	if cmd.Flags().Changed("seed") {
		req.Seed = &seed
	}

	name := engineName
	if name == "" {
		name = rt.cfg.Engine
	}

	if voiceName != "" {
		profile, err := findVoice(rt.library, name, voiceName)
		if err != nil {
			return err
		}
		req.Voice = profile
	}

	// Ctrl-C cancels cooperatively through the liveness probe, so the
	// engine unloads cleanly instead of being killed mid-step.
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	alive := func(context.Context) bool { return sigCtx.Err() == nil }

	result, err := rt.pipeline.Generate(context.Background(), name, req, alive)
	if err != nil {
		return err
	}
	defer rt.manager.Deactivate(context.Background())

	log.Info("Audio written", "path", result.AudioPath,
		"duration", fmt.Sprintf("%.1fs", result.DurationSeconds),
		"engine", result.EngineUsed)
	fmt.Println(result.AudioPath)
	return nil
}

// findVoice matches a cloned voice by id or name for the given engine.
func findVoice(library *voices.DirLibrary, engine, name string) (*tts.VoiceProfile, error) {
	for _, p := range library.ProfilesFor(engine) {
		if p.ID == name || strings.EqualFold(p.Name, name) {
			profile := p
			return &profile, nil
		}
	}
	return nil, fmt.Errorf("%w: no voice %q for engine %s", tts.ErrVoiceMismatch, name, engine)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&engineName, "engine", "e", "", "engine to synthesize with (kokoro/f5-tts/fish-speech)")
	rootCmd.Flags().StringVarP(&voiceName, "voice", "v", "", "cloned voice id or name")
	rootCmd.Flags().StringVar(&emotion, "emotion", "", "emotion preset (fish-speech only)")
	rootCmd.Flags().Float64Var(&speed, "speed", 1.0, "speech speed multiplier")
	rootCmd.Flags().Float64Var(&temperature, "temperature", 0.7, "sampling temperature")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "random seed for reproducible output")
	rootCmd.Flags().StringVarP(&format, "format", "f", "wav", "output format (wav/mp3/flac/ogg)")

	_ = viper.BindPFlag("engine", rootCmd.Flags().Lookup("engine"))
	viper.SetDefault("engine", "kokoro")
	viper.SetDefault("device", "cuda")
	viper.SetDefault("debug", false)

	rootCmd.AddCommand(enginesCmd, voicesCmd, modelsCmd, previewCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "voiceforge")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "voiceforge")}, dirs...)
	}

	if c := os.Getenv("VOICEFORGE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("voiceforge")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("voiceforge")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "voiceforge.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
