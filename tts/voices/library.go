// Package voices provides the engine-facing view of cloned voice profiles.
// Durable profile management (import, export, deletion) lives outside the
// core; engines only need to discover profiles tagged for them and to
// persist the one a cloning call produced.
package voices

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/voiceforge/voiceforge/tts"
)

// Library exposes cloned voice profiles to engines.
type Library interface {
	// ProfilesFor returns the profiles tagged for the named engine, in
	// discovery order.
	ProfilesFor(engine string) []tts.VoiceProfile

	// Save persists a freshly cloned profile next to its reference audio.
	Save(profile tts.VoiceProfile) error
}

const metadataFile = "metadata.json"

// DirLibrary is a Library backed by a directory of per-voice subdirectories,
// each holding a metadata.json and the reference audio.
type DirLibrary struct {
	root string

	mu    sync.RWMutex
	cache []tts.VoiceProfile
	stale bool
}

// NewDirLibrary creates a library over root. The directory may not exist
// yet; it is created on first Save.
func NewDirLibrary(root string) *DirLibrary {
	return &DirLibrary{root: root, stale: true}
}

// Root returns the library directory.
func (l *DirLibrary) Root() string { return l.root }

// Invalidate marks the cached index stale. The watcher calls this whenever
// the directory changes.
func (l *DirLibrary) Invalidate() {
	l.mu.Lock()
	l.stale = true
	l.mu.Unlock()
}

// ProfilesFor implements Library.
func (l *DirLibrary) ProfilesFor(engine string) []tts.VoiceProfile {
	all := l.profiles()
	out := make([]tts.VoiceProfile, 0, len(all))
	for _, p := range all {
		if p.Engine == engine {
			out = append(out, p)
		}
	}
	return out
}

// Profiles returns every profile in the library.
func (l *DirLibrary) Profiles() []tts.VoiceProfile {
	return l.profiles()
}

func (l *DirLibrary) profiles() []tts.VoiceProfile {
	l.mu.RLock()
	if !l.stale {
		cached := l.cache
		l.mu.RUnlock()
		return cached
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.stale {
		return l.cache
	}
	l.cache = l.scan()
	l.stale = false
	return l.cache
}

// scan walks the library directory reading per-voice metadata. Unreadable
// entries are logged and skipped.
func (l *DirLibrary) scan() []tts.VoiceProfile {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("Could not read voice library", "dir", l.root, "error", err)
		}
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var profiles []tts.VoiceProfile
	for _, name := range names {
		metaPath := filepath.Join(l.root, name, metadataFile)
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}
		var p tts.VoiceProfile
		if err := json.Unmarshal(data, &p); err != nil {
			log.Warn("Skipping malformed voice metadata", "path", metaPath, "error", err)
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// Save implements Library.
func (l *DirLibrary) Save(profile tts.VoiceProfile) error {
	if profile.ID == "" {
		return fmt.Errorf("voice profile has no id")
	}
	dir := filepath.Join(l.root, profile.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating voice dir: %w", err)
	}
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding voice metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0o644); err != nil {
		return fmt.Errorf("writing voice metadata: %w", err)
	}
	l.Invalidate()
	log.Info("Saved voice profile", "id", profile.ID, "name", profile.Name, "engine", profile.Engine)
	return nil
}
