package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// setupLog configures the global logger. Logs go to stderr, or to the file
// named by VOICEFORGE_LOGFILE when set. The returned closer flushes the
// file, if any.
func setupLog() (func() error, error) {
	log.SetLevel(log.InfoLevel)
	if viper.GetBool("debug") || os.Getenv("VOICEFORGE_DEBUG") == "true" {
		log.SetLevel(log.DebugLevel)
	}

	if path := os.Getenv("VOICEFORGE_LOGFILE"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		log.SetOutput(f)
		log.SetReportTimestamp(true)
		log.SetTimeFormat(time.RFC3339)
		return f.Close, nil
	}

	// Plain logfmt when stderr is piped somewhere.
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		log.SetFormatter(log.LogfmtFormatter)
		log.SetReportTimestamp(true)
	}
	return func() error { return nil }, nil
}
