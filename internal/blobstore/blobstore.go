// Package blobstore abstracts artifact byte storage. The local implementation
// writes under a media root with atomic rename and serves file:// URLs; a
// remote implementation can be substituted without touching the pipeline.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Store is the artifact storage boundary used by the pipeline.
type Store interface {
	Upload(ctx context.Context, data []byte, path string) (string, error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, paths []string) error
}

// Local stores blobs on the filesystem beneath a media root.
type Local struct {
	root string
}

// NewLocal constructs a filesystem-backed store rooted at dir.
func NewLocal(dir string) (*Local, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("blobstore root required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure blobstore root: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve blobstore root: %w", err)
	}
	return &Local{root: abs}, nil
}

// Upload writes data beneath the root and returns a file:// URL. The write is
// atomic: a temp file is renamed into place so readers never see partials.
func (l *Local) Upload(ctx context.Context, data []byte, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("ensure blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("finalize blob: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: target}).String(), nil
}

// Fetch reads a blob by file:// URL or root-relative path.
func (l *Local) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := l.resolveRef(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Delete removes blobs best-effort; missing files are not errors.
func (l *Local) Delete(ctx context.Context, paths []string) error {
	var firstErr error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := l.resolveRef(path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			if firstErr == nil {
				firstErr = fmt.Errorf("delete blob: %w", err)
			}
		}
	}
	return firstErr
}

func (l *Local) resolve(path string) (string, error) {
	cleaned := filepath.Clean("/" + strings.TrimSpace(path))
	target := filepath.Join(l.root, cleaned)
	if !strings.HasPrefix(target, l.root+string(filepath.Separator)) && target != l.root {
		return "", fmt.Errorf("path %q escapes blobstore root", path)
	}
	return target, nil
}

func (l *Local) resolveRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if parsed, err := url.Parse(ref); err == nil && parsed.Scheme == "file" {
		return parsed.Path, nil
	}
	return l.resolve(ref)
}
