package voices

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/voiceforge/voiceforge/tts"
)

// CloneFromAudio copies a reference clip into the library under a fresh
// voice id and persists a profile tagged for the given engine. Engines with
// cloning support share this path.
func CloneFromAudio(library Library, engine, audioPath, displayName, referenceText string) (*tts.VoiceProfile, error) {
	dir, ok := library.(*DirLibrary)
	if !ok {
		return nil, fmt.Errorf("library does not support cloning")
	}

	id := uuid.New().String()
	voiceDir := filepath.Join(dir.Root(), id)
	if err := os.MkdirAll(voiceDir, 0o755); err != nil {
		return nil, err
	}

	dest := filepath.Join(voiceDir, "reference.wav")
	if err := copyFile(audioPath, dest); err != nil {
		return nil, fmt.Errorf("copying reference audio: %w", err)
	}

	profile := tts.VoiceProfile{
		ID:                 id,
		Name:               displayName,
		Engine:             engine,
		ReferenceAudioPath: dest,
		ReferenceText:      referenceText,
		Settings:           map[string]string{},
		CreatedAt:          time.Now(),
		Source:             "audio",
	}
	if err := library.Save(profile); err != nil {
		return nil, err
	}
	log.Info("Cloned voice", "engine", engine, "name", displayName, "id", id)
	return &profile, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
