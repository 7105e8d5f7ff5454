package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/voiceforge/voiceforge/tts/promptvoice"
)

var (
	previewModel string

	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "List voice generation models",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			for _, m := range promptvoice.Models {
				name := m.Name
				if m.Default {
					name = keyword(m.Name) + subtle(" (default)")
				}
				fmt.Printf("%s  %s\n", name, subtle(m.ID))
				fmt.Printf("  %s\n", m.Description)
				fmt.Printf("  %s\n", subtle(fmt.Sprintf("quality %s  speed %s  vram %s  download %s",
					stars(m.Quality), stars(m.Speed),
					humanize.SI(m.VRAMGB*1e9, "B"), humanize.SI(m.DownloadGB*1e9, "B"))))
			}
			return nil
		},
	}

	previewCmd = &cobra.Command{
		Use:   "preview DESCRIPTION",
		Short: "Generate a brand new voice from a text description",
		Long: paragraph(
			fmt.Sprintf("\n%s a voice that does not exist yet by describing it: \"a warm female voice with a slight British accent, speaking slowly\". The sample sentence is synthesized in that voice so you can judge it before saving.", keyword("Preview")),
		),
		Example: paragraph("voiceforge preview \"a deep male voice, calm and slightly raspy\""),
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()
			defer rt.subscribeProgress()()

			sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			alive := func(context.Context) bool { return sigCtx.Err() == nil }

			path, err := rt.prompt.GeneratePreview(context.Background(), previewModel, args[0], alive)
			if err != nil {
				return err
			}

			fmt.Println(path)
			return nil
		},
	}
)

func stars(n int) string {
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func init() {
	previewCmd.Flags().StringVarP(&previewModel, "model", "m", "", "voice generation model (see voiceforge models)")
}
