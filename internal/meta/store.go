package meta

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"
)

const fileName = "stack-metadata.json"

// Store is the single versioned document that backs a repository's stack
// forest. All mutation goes through a single read-write lock on the whole
// document, per the one-document-one-write-lock design: no per-stack or
// per-field locking.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// Open returns a Store rooted at a repository's private directory (e.g.
// Repo.PrivateDir()). It does not read the document yet; Load does.
func Open(privateDir string) *Store {
	return &Store{dir: privateDir}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, fileName)
}

// Load reads the document, tolerating a missing file (returns a fresh
// default) and an unknown version (returns a fresh default and logs a
// warning rather than failing the caller).
func (s *Store) Load() (*StackMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bs, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.WrapIff(err, "failed to read %s", s.path())
	}

	var doc StackMetadata
	if err := json.Unmarshal(bs, &doc); err != nil {
		logrus.WithError(err).Warn("stack metadata document is corrupt, resetting to default")
		return Default(), nil
	}
	if doc.Version != CurrentVersion {
		logrus.WithFields(logrus.Fields{
			"found":    doc.Version,
			"expected": CurrentVersion,
		}).Warn("stack metadata document has an unrecognized version, resetting to default")
		return Default(), nil
	}
	return &doc, nil
}

// Save writes the document as pretty-printed JSON via a temp-sibling
// write-then-rename, so a crash mid-write never leaves a truncated document
// in place.
func (s *Store) Save(doc *StackMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.WrapIff(err, "failed to create %s", s.dir)
	}

	bs, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal stack metadata")
	}
	bs = append(bs, '\n')

	tmp, err := os.CreateTemp(s.dir, fileName+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file for stack metadata")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(bs); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write stack metadata")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to fsync stack metadata")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close stack metadata temp file")
	}
	if err := os.Rename(tmpPath, s.path()); err != nil {
		return errors.Wrap(err, "failed to replace stack metadata")
	}
	return nil
}
