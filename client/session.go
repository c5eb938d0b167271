package client

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/guileen/finledger/errors"
)

// Session is a logged in user, persisted between finctl runs.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Server   string `json:"server"`
}

// LoadSession reads a saved session. A missing file is a not found error.
func LoadSession(path string) (*Session, error) {
	const op = "client.LoadSession"
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError(op, "not logged in")
		}
		return nil, apperrors.NewStorageError(op, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeFormat, op, "corrupt session file %s", path)
	}
	if s.Token == "" {
		return nil, apperrors.NewNotFoundError(op, "not logged in")
	}
	return &s, nil
}

// Save writes the session readable by the owner only. The file is replaced
// atomically.
func (s *Session) Save(path string) error {
	const op = "client.Session.Save"
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnknown, op)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return apperrors.NewStorageError(op, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return apperrors.NewStorageError(op, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.NewStorageError(op, err)
	}
	return nil
}

// Clear forgets the session and removes its file. Clearing a session that
// was never saved is not an error.
func (s *Session) Clear(path string) error {
	*s = Session{}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewStorageError("client.Session.Clear", err)
	}
	return nil
}
