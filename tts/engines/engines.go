// Package engines provides shared helpers for the concrete synthesis
// backends. Each backend wraps an external inference process; this core
// never performs the neural math itself.
package engines

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// OutputPath returns a fresh artifact path under root, grouped by date:
// <root>/<yyyymmdd>/<uuid8>.<ext>. The directory is created.
func OutputPath(root, ext string) (string, error) {
	dir := filepath.Join(root, time.Now().Format("20060102"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	id := uuid.New().String()[:8]
	return filepath.Join(dir, id+"."+ext), nil
}

// BinaryInstalled probes PATH for an inference binary. It never errors;
// a failed probe reports false.
func BinaryInstalled(binary string) bool {
	if binary == "" {
		return false
	}
	_, err := exec.LookPath(binary)
	return err == nil
}

// WAVInfo holds the header fields of a RIFF/WAVE file.
type WAVInfo struct {
	SampleRate      int
	Channels        int
	BitsPerSample   int
	DurationSeconds float64
}

// ReadWAVInfo parses the header of a PCM wav file produced by an inference
// process. Engines use it to fill in the generation result without decoding
// the audio.
func ReadWAVInfo(path string) (WAVInfo, error) {
	var info WAVInfo
	f, err := os.Open(path)
	if err != nil {
		return info, err
	}
	defer f.Close() //nolint:errcheck

	header := make([]byte, 12)
	if _, err := f.Read(header); err != nil {
		return info, fmt.Errorf("reading riff header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return info, fmt.Errorf("%s: not a wav file", path)
	}

	// Walk chunks for fmt and data.
	var byteRate uint32
	var dataSize uint32
	chunk := make([]byte, 8)
	for {
		if _, err := f.Read(chunk); err != nil {
			break
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])
		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := f.Read(body); err != nil {
				return info, fmt.Errorf("reading fmt chunk: %w", err)
			}
			info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			byteRate = binary.LittleEndian.Uint32(body[8:12])
			info.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
		case "data":
			dataSize = size
			// data is the audio payload; no need to read it
			if _, err := f.Seek(int64(size), 1); err != nil {
				return info, err
			}
		default:
			if _, err := f.Seek(int64(size), 1); err != nil {
				return info, err
			}
		}
		if byteRate != 0 && dataSize != 0 {
			break
		}
	}

	if info.SampleRate == 0 {
		return info, fmt.Errorf("%s: missing fmt chunk", path)
	}
	if byteRate > 0 {
		info.DurationSeconds = float64(dataSize) / float64(byteRate)
	}
	return info, nil
}
