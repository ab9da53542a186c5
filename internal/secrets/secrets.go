// Package secrets keeps the OpenAI API key in the OS keyring rather than in
// the SQLite file.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "hundred"
	openAIUser  = "openai"
)

var ErrNoKey = errors.New("no api key stored")

type Keyring struct{}

func NewKeyring() *Keyring {
	return &Keyring{}
}

func (k *Keyring) SetOpenAIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key is empty")
	}
	if err := keyring.Set(serviceName, openAIUser, key); err != nil {
		return fmt.Errorf("store api key: %w", err)
	}
	return nil
}

func (k *Keyring) OpenAIKey() (string, error) {
	v, err := keyring.Get(serviceName, openAIUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoKey
	}
	if err != nil {
		return "", fmt.Errorf("read api key: %w", err)
	}
	return v, nil
}

func (k *Keyring) DeleteOpenAIKey() error {
	err := keyring.Delete(serviceName, openAIUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}

// ResolveOpenAIKey prefers an explicit key (e.g. from the environment) and
// falls back to the keyring. An unavailable keyring is treated as no key.
func ResolveOpenAIKey(explicit string, k *Keyring) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	if k == nil {
		return ""
	}
	v, err := k.OpenAIKey()
	if err != nil {
		return ""
	}
	return v
}

// Mask hides all but the last four characters of key.
func Mask(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return strings.Repeat("•", len(key))
	}
	return strings.Repeat("•", 8) + key[len(key)-4:]
}
