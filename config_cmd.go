package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# default engine: kokoro, f5-tts, or fish-speech
engine: "kokoro"
# inference device: cuda, cpu, or mps
device: "cuda"
# verbose logging
debug: false

# data_dir holds models, voices, outputs, and previews; each can also be
# overridden individually below.
# data_dir: "~/.voiceforge"
# models_dir: ""
# voices_dir: ""
# outputs_dir: ""
# previews_dir: ""

# heartbeat and client liveness poll cycle for long generations
poll_interval: "5s"

kokoro:
  binary: "kokoro-tts"
  timeout: "120s"

f5:
  binary: "f5-tts_infer-cli"
  timeout: "600s"

fish_speech:
  binary: "fish-speech"
  timeout: "600s"

# voice generation from text descriptions
prompt_voice:
  binary: "parler-tts"
  model: "parler-mini-v1.1"
  sample_text: "Hello, this is a preview of my custom voice. I hope you like how it sounds."
`

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Edit the voiceforge config file",
	Long:    paragraph(fmt.Sprintf("\n%s the voiceforge config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("voiceforge config\nvoiceforge config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("VoiceForge", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
