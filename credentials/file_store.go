package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const fileVersion = 1

type fileDocument struct {
	Version    int              `json:"version"`
	Key        string           `json:"key"`
	Credential StoredCredential `json:"credential"`
}

var _ Store = (*FileStore)(nil)

// FileStore keeps the credential as a JSON document at a fixed path.
// Saves write a temp file in the same directory and rename it into place.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path. The directory is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document location.
func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) Save(ctx context.Context, cred StoredCredential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cred.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(fileDocument{Version: fileVersion, Key: StorageKey, Credential: cred})
	if err != nil {
		return fmt.Errorf("marshalling credential: %w", err)
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp credential: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp credential: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp credential: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp credential: %w", err)
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		return fmt.Errorf("replacing credential: %w", err)
	}
	committed = true
	return nil
}

func (fs *FileStore) Load(ctx context.Context) (*StoredCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading credential: %w", ErrStorageCorrupt, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	if doc.Key != StorageKey {
		return nil, fmt.Errorf("%w: unexpected key %q", ErrStorageCorrupt, doc.Key)
	}
	if err := doc.Credential.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	return &doc.Credential, nil
}

func (fs *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if info, err := os.Lstat(fs.path); err == nil && info.IsDir() {
		return fmt.Errorf("removing credential: %s is a directory", fs.path)
	}
	if err := os.Remove(fs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credential: %w", err)
	}
	return nil
}
