package memory

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kart-io/persona-assistant/pkg/utils/json"
)

// FileStore keeps the session document in a JSON file.
// Writes go to a temporary file in the same directory and are renamed
// into place.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document path.
func (s *FileStore) Path() string { return s.path }

// Load reads the document. A missing file is an empty document.
func (s *FileStore) Load(_ context.Context) (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return make(Document), nil
		}
		return nil, fmt.Errorf("read session document: %w", err)
	}

	doc := make(Document)
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode session document: %w", err)
	}
	return doc, nil
}

// Save writes the document atomically.
func (s *FileStore) Save(_ context.Context, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session document: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace session document: %w", err)
	}
	return nil
}
