package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/existflow/lockin/internal/config"
	"github.com/existflow/lockin/internal/model"
)

// AuthState is the signed-in remote identity, kept in ~/.lockin/auth.json
type AuthState struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      model.Identity `json:"user"`
}

// DefaultAuthPath returns ~/.lockin/auth.json
func DefaultAuthPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "auth.json"), nil
}

// loadAuth reads the auth file; a missing file means signed out
func loadAuth(path string) (*AuthState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read auth state: %w", err)
	}

	var st AuthState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse auth state: %w", err)
	}
	if st.Token == "" {
		return nil, nil
	}
	return &st, nil
}

func saveAuth(path string, st *AuthState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func clearAuth(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
