// Package upload walks a local directory tree and publishes it as a
// content-addressed manifest in the object store: every file is stored
// under a key derived from its contents, and the manifest maps served
// paths to those keys.
package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/shovehq/shove/internal/manifest"
)

// ObjectPutter is the slice of objectstore.Store this package needs.
type ObjectPutter interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Root is the object-store key prefix every uploaded file is stored
// under.
const Root = "pages"

// Uploader publishes a local directory to the object store.
type Uploader struct {
	store  ObjectPutter
	logger *slog.Logger
}

// New builds an Uploader.
func New(store ObjectPutter, logger *slog.Logger) *Uploader {
	return &Uploader{store: store, logger: logger}
}

// Result summarizes a completed upload.
type Result struct {
	FilesUploaded int
	Manifest      manifest.Manifest
}

// Upload walks dir, uploading every regular file under a content-addressed
// key and publishing a manifest mapping each file's full object-store path
// (Root plus its served path, relative to dir, with a leading slash) to
// that key -- matching the original server's `format!("{root}{path}")`
// resolution, so a served path is looked up by prefixing it with Root
// before consulting the manifest.
func (u *Uploader) Upload(ctx context.Context, dir string) (Result, error) {
	entries := make(map[string]string)

	err := filepath.WalkDir(dir, func(fullPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, fullPath)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", fullPath, err)
		}
		servedPath := "/" + filepath.ToSlash(rel)

		body, err := os.ReadFile(fullPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", fullPath, err)
		}

		key := contentKey(body)
		contentType := contentTypeFor(fullPath)

		if err := u.store.Put(ctx, key, body, contentType); err != nil {
			return fmt.Errorf("upload %s: %w", servedPath, err)
		}

		entries[Root+servedPath] = key
		u.logger.Debug("uploaded page", "path", servedPath, "key", key, "bytes", len(body))
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	m := manifest.Manifest{Root: Root, Entries: entries}
	raw, err := manifest.Encode(m)
	if err != nil {
		return Result{}, fmt.Errorf("encode manifest: %w", err)
	}

	if err := u.store.Put(ctx, manifest.Key, raw, "application/json"); err != nil {
		return Result{}, fmt.Errorf("publish manifest: %w", err)
	}

	u.logger.Info("upload complete", "file_count", len(entries))
	return Result{FilesUploaded: len(entries), Manifest: m}, nil
}

// contentKey derives the object-store key for a file's bytes: the SHA-256
// digest, hex-encoded, under Root, so identical content across two served
// paths is only ever stored once.
func contentKey(body []byte) string {
	sum := sha256.Sum256(body)
	return Root + "/" + hex.EncodeToString(sum[:])
}

func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
