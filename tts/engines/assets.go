package engines

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
)

// ExtractModelArchive unpacks a downloaded .tar.gz model archive into dir.
// Entries escaping the destination are rejected.
func ExtractModelArchive(archivePath, dir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close() //nolint:errcheck

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading gzip stream: %w", err)
	}
	defer gz.Close() //nolint:errcheck

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var total uint64
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		target := filepath.Join(dir, filepath.Clean(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, hdr.FileInfo().Mode())
			if err != nil {
				return err
			}
			n, err := io.Copy(out, tr) //nolint:gosec
			cerr := out.Close()
			if err != nil {
				return fmt.Errorf("extracting %s: %w", hdr.Name, err)
			}
			if cerr != nil {
				return cerr
			}
			total += uint64(n)
		}
	}

	log.Info("Extracted model archive",
		"archive", filepath.Base(archivePath), "size", humanize.Bytes(total), "dir", dir)
	return nil
}

// WeightsPresent reports whether a model directory exists and is non-empty.
func WeightsPresent(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
