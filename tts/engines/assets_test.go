package engines

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func writeArchive(t *testing.T, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "model.tar.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractModelArchive(t *testing.T) {
	archive := writeArchive(t, map[string]string{
		"model.onnx":        "weights",
		"config/model.json": `{"sample_rate":24000}`,
	})

	dir := filepath.Join(t.TempDir(), "weights")
	if err := ExtractModelArchive(archive, dir); err != nil {
		t.Fatalf("Expected extraction to succeed, got %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "model.onnx"))
	if err != nil {
		t.Fatalf("Expected extracted file: %v", err)
	}
	if string(data) != "weights" {
		t.Errorf("Expected file content to survive, got %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "config", "model.json")); err != nil {
		t.Errorf("Expected nested file: %v", err)
	}

	if !WeightsPresent(dir) {
		t.Error("Expected WeightsPresent to report true")
	}
}

func TestExtractModelArchiveRejectsEscape(t *testing.T) {
	archive := writeArchive(t, map[string]string{
		"../escape.txt": "outside",
	})

	dir := filepath.Join(t.TempDir(), "weights")
	if err := ExtractModelArchive(archive, dir); err == nil {
		t.Error("Expected path-escaping entry to be rejected")
	}
}

func TestExtractModelArchiveBadGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.tar.gz")
	if err := os.WriteFile(path, []byte("not gzip at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ExtractModelArchive(path, t.TempDir()); err == nil {
		t.Error("Expected corrupt archive to error")
	}
}

func TestWeightsPresent(t *testing.T) {
	if WeightsPresent(filepath.Join(t.TempDir(), "missing")) {
		t.Error("Expected missing dir to report false")
	}
	empty := t.TempDir()
	if WeightsPresent(empty) {
		t.Error("Expected empty dir to report false")
	}
}
