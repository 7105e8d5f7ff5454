package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestBuildRuntimeWatchesVoiceLibrary(t *testing.T) {
	viper.Set("data_dir", t.TempDir())

	rt, err := buildRuntime()
	if err != nil {
		t.Fatal(err)
	}
	defer rt.close()

	if rt.watcher == nil {
		t.Fatal("Expected the voice library watcher to be running")
	}

	// A voice dropped in by external tooling is picked up without a
	// restart.
	dir := filepath.Join(rt.cfg.VoicesDir, "imported")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	meta := []byte(`{"id":"imported","name":"Imported","engine":"f5-tts","source":"audio"}`)
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), meta, 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(rt.library.Profiles()) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Expected the imported voice to be discovered")
}
