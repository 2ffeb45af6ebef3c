package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/absola/internal/domain"
)

const originalBaseName = "original"

// Config holds the filesystem roots the manager owns.
type Config struct {
	DocumentsDir string
	UploadsDir   string
	// IndexRoot is where the AI service writes index directories. Empty disables index removal.
	IndexRoot string
}

// Manager maps document ids to directories under a single root.
type Manager struct {
	documentsDir string
	uploadsDir   string
	indexRoot    string
}

// New resolves the roots to absolute paths and creates the documents and uploads directories.
func New(cfg Config) (*Manager, error) {
	if cfg.DocumentsDir == "" {
		return nil, fmt.Errorf("documents dir is required: %w", domain.ErrStorage)
	}

	docs, err := filepath.Abs(cfg.DocumentsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve documents dir: %w: %w", domain.ErrStorage, err)
	}

	uploads := cfg.UploadsDir
	if uploads == "" {
		uploads = filepath.Join(os.TempDir(), "absola-uploads")
	}
	uploads, err = filepath.Abs(uploads)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads dir: %w: %w", domain.ErrStorage, err)
	}

	var indexRoot string
	if cfg.IndexRoot != "" {
		indexRoot, err = filepath.Abs(cfg.IndexRoot)
		if err != nil {
			return nil, fmt.Errorf("resolve index root: %w: %w", domain.ErrStorage, err)
		}
	}

	for _, dir := range []string{docs, uploads} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create %s: %w: %w", dir, domain.ErrStorage, err)
		}
	}

	return &Manager{documentsDir: docs, uploadsDir: uploads, indexRoot: indexRoot}, nil
}

// PathFor returns the directory of a document. Ids that could escape the root are rejected.
func (m *Manager) PathFor(id string) (string, error) {
	if id == "" || id == "." || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid document id %q: %w", id, domain.ErrStorage)
	}
	return filepath.Join(m.documentsDir, id), nil
}

// EnsureDir creates the document directory if missing.
func (m *Manager) EnsureDir(id string) error {
	dir, err := m.PathFor(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w: %w", dir, domain.ErrStorage, err)
	}
	return nil
}

// RemoveAll deletes the document directory. Missing directories are not an error.
func (m *Manager) RemoveAll(id string) error {
	dir, err := m.PathFor(id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w: %w", dir, domain.ErrStorage, err)
	}
	return nil
}

// Place moves srcPath into the document directory as original<ext> and returns the new path.
// The extension comes from originalName, lowercased; the name itself is never used.
func (m *Manager) Place(id, srcPath, originalName string) (string, error) {
	if _, err := os.Stat(srcPath); err != nil {
		return "", fmt.Errorf("source %s: %w: %w", srcPath, domain.ErrStorage, err)
	}
	if err := m.EnsureDir(id); err != nil {
		return "", err
	}

	dir, _ := m.PathFor(id)
	dst := filepath.Join(dir, originalBaseName+strings.ToLower(filepath.Ext(originalName)))

	if err := os.Rename(srcPath, dst); err == nil {
		return dst, nil
	}

	// Rename fails across filesystems; fall back to copy and remove.
	if err := copyFile(srcPath, dst); err != nil {
		return "", fmt.Errorf("copy %s: %w: %w", srcPath, domain.ErrStorage, err)
	}
	if err := os.Remove(srcPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("remove source %s: %w: %w", srcPath, domain.ErrStorage, err)
	}
	return dst, nil
}

// ReadFile reads a stored file. Paths outside the documents root are refused.
func (m *Manager) ReadFile(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w: %w", path, domain.ErrStorage, err)
	}
	if !within(m.documentsDir, abs) {
		return nil, fmt.Errorf("path %s outside documents dir: %w", path, domain.ErrStorage)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", path, domain.ErrStorage, err)
	}
	return data, nil
}

// RemoveIndex deletes an index directory referenced by a ready document.
// References outside the index root are skipped and reported as not removed.
func (m *Manager) RemoveIndex(indexRef string) (bool, error) {
	if m.indexRoot == "" || indexRef == "" {
		return false, nil
	}

	abs, err := filepath.Abs(indexRef)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w: %w", indexRef, domain.ErrStorage, err)
	}
	if !within(m.indexRoot, abs) {
		return false, nil
	}

	if err := os.RemoveAll(abs); err != nil {
		return false, fmt.Errorf("remove index %s: %w: %w", abs, domain.ErrStorage, err)
	}
	return true, nil
}

// UploadsDir is where the HTTP layer spools incoming files.
func (m *Manager) UploadsDir() string {
	return m.uploadsDir
}

// within reports whether path is strictly inside root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
