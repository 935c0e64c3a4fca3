package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"taskpal/internal/session"
)

// store persists credentials as a single JSON file under the state dir. The
// file is the session's durable storage; deleting it is the logout.
type store struct {
	path string
}

// New builds a file-backed session.Persistence at path. A leading "~/" is
// resolved against the home directory.
func New(path string) session.Persistence {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	return &store{path: path}
}

func (s *store) Load() (session.Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return session.Credentials{}, nil
		}
		return session.Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var creds session.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		// A corrupt file is unrecoverable; treat it as logged out rather than
		// wedging startup.
		return session.Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	return creds, nil
}

func (s *store) Save(creds session.Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	// 0600: the file holds a live bearer token.
	return os.WriteFile(s.path, data, 0600)
}

func (s *store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
