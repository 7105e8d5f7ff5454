package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/voiceforge/voiceforge/tts"
)

var (
	cloneEngine  string
	cloneRefText string

	voicesCmd = &cobra.Command{
		Use:   "voices",
		Short: "List cloned voices",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			profiles := rt.library.Profiles()
			if len(profiles) == 0 {
				fmt.Println("No voices yet. Clone one with:", keyword("voiceforge voices clone AUDIO NAME"))
				return nil
			}
			for _, p := range profiles {
				fmt.Printf("%s  %s\n", keyword(p.Name), subtle(p.ID))
				fmt.Printf("  %s\n", subtle(fmt.Sprintf("engine %s  source %s  created %s",
					p.Engine, p.Source, p.CreatedAt.Format("2006-01-02"))))
			}
			return nil
		},
	}

	voicesCloneCmd = &cobra.Command{
		Use:   "clone AUDIO NAME",
		Short: "Clone a voice from a reference recording",
		Long: paragraph(
			fmt.Sprintf("\n%s a voice from a short reference recording (10 to 30 seconds of clean speech works best). The voice becomes usable with any engine that supports cloning.", keyword("Clone")),
		),
		Example: paragraph("voiceforge voices clone sample.wav \"Alice\" --ref-text \"The text spoken in the sample.\""),
		Args:    cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			engine, err := rt.manager.Engine(cloneEngine)
			if err != nil {
				return err
			}
			if !engine.SupportsVoiceCloning() {
				return fmt.Errorf("%w: %s does not support voice cloning",
					tts.ErrUnsupportedOperation, engine.Name())
			}

			profile, err := engine.CloneVoice(context.Background(), args[0], args[1], cloneRefText)
			if err != nil {
				return err
			}

			log.Info("Voice cloned", "id", profile.ID, "name", profile.Name, "engine", profile.Engine)
			fmt.Println(profile.ID)
			return nil
		},
	}
)

func init() {
	voicesCloneCmd.Flags().StringVarP(&cloneEngine, "engine", "e", "f5-tts", "engine to clone with (f5-tts/fish-speech)")
	voicesCloneCmd.Flags().StringVar(&cloneRefText, "ref-text", "", "transcript of the reference recording")
	voicesCmd.AddCommand(voicesCloneCmd)
}
