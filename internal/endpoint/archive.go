package endpoint

import (
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/cterence/uartemu/internal/log"
)

var (
	ErrUnsupportedArchive = errors.New("unsupported archive")
	ErrEmptyArchive       = errors.New("archive has no files")
)

// IsArchive reports whether path names a compressed input stream.
func IsArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".7z", ".gz":
		return true
	default:
		return false
	}
}

// LoadArchive decompresses the first file of a .zip, .7z or .gz archive.
func LoadArchive(path string) ([]uint8, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".zip":
		r, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open zip archive: %w", err)
		}
		defer r.Close()

		for _, f := range r.File {
			if f.FileInfo().IsDir() {
				continue
			}

			log.Debug("[endpoint] read file %s in archive", f.Name)

			return readArchived(f.Open)
		}

		return nil, ErrEmptyArchive
	case ".7z":
		r, err := sevenzip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open 7z archive: %w", err)
		}
		defer r.Close()

		for _, f := range r.File {
			if f.FileInfo().IsDir() {
				continue
			}

			log.Debug("[endpoint] read file %s in archive", f.Name)

			return readArchived(f.Open)
		}

		return nil, ErrEmptyArchive
	case ".gz":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()

		return io.ReadAll(gz)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedArchive, ext)
	}
}

func readArchived(open func() (io.ReadCloser, error)) ([]uint8, error) {
	rc, err := open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archived file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived file: %w", err)
	}

	return data, nil
}
