package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const tempPattern = ".ytdlr-tmp-*"

// maxNameAttempts bounds the " (n)" suffix search in Reserve.
const maxNameAttempts = 1000

func Mkdir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// WriteBytes replaces path with data through a temp file and rename.
func WriteBytes(path string, data []byte) error {
	return WriteStream(path, func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	})
}

// WriteStream writes whatever fill produces to a temp file next to path and renames it into
// place, so readers never observe a partial file.
func WriteStream(path string, fill func(io.Writer) (int64, error)) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := fill(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}

// SafeName reduces a server-supplied file name to a single path element.
func SafeName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	switch name {
	case "", ".", "..", "/":
		return "download"
	}
	return name
}

// Reserve claims a free name for SafeName(name) inside dir by creating an empty placeholder.
// A taken name gets a " (n)" suffix before the extension.
func Reserve(dir, name string) (string, error) {
	if err := Mkdir(dir); err != nil {
		return "", err
	}
	base := SafeName(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_ = f.Close()
			return path, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("reserve %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("no free file name for %s in %s", base, dir)
}

// Save stores the stream under a fresh name in dir and returns the final path. The
// placeholder is removed again if the stream fails.
func Save(dir, name string, fill func(io.Writer) (int64, error)) (string, error) {
	path, err := Reserve(dir, name)
	if err != nil {
		return "", err
	}
	if err := WriteStream(path, fill); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}
