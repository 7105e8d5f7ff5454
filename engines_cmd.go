package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List synthesis engines",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		for _, d := range rt.manager.Engines() {
			name := d.Name
			if d.Name == rt.cfg.Engine {
				name = keyword(d.Name)
			}

			var traits []string
			if d.SupportsCloning {
				traits = append(traits, "cloning")
			}
			if d.SupportsEmotion {
				traits = append(traits, "emotion")
			}
			status := "available"
			if !d.Available {
				status = "not installed"
			}

			fmt.Printf("%s  %s\n", name, subtle(status))
			fmt.Printf("  %s\n", d.Description)
			line := fmt.Sprintf("vram %s", humanize.SI(d.RequiredVRAMGB*1e9, "B"))
			if len(traits) > 0 {
				line += "  " + strings.Join(traits, ", ")
			}
			if len(d.BuiltinVoices) > 0 {
				line += fmt.Sprintf("  %d built-in voices", len(d.BuiltinVoices))
			}
			fmt.Printf("  %s\n", subtle(line))
		}
		return nil
	},
}
