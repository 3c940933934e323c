package client

import (
	"encoding/json"
	"errors"
	"os"
	"path"
	"sync"

	"github.com/spf13/afero"
)

// Tokens is the stored credential pair.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type TokenStore interface {
	Load() (Tokens, error)
	Save(Tokens) error
}

// FileTokenStore keeps tokens in a JSON file. A missing file means logged out.
type FileTokenStore struct {
	Fs   afero.Fs
	Path string

	mu sync.Mutex
}

func NewFileTokenStore(fs afero.Fs, dir string) *FileTokenStore {
	return &FileTokenStore{Fs: fs, Path: path.Join(dir, "tokens.json")}
}

func (s *FileTokenStore) Load() (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t Tokens
	raw, err := afero.ReadFile(s.Fs, s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	err = json.Unmarshal(raw, &t)
	return t, err
}

func (s *FileTokenStore) Save(t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := s.Fs.MkdirAll(path.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return afero.WriteFile(s.Fs, s.Path, raw, 0o600)
}

// Clear forgets the stored tokens.
func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.Fs.Remove(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
