// Package secrets stores third-party API keys for the translation providers.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	apperrors "lingobar/internal/errors"
	"lingobar/internal/keystore"
)

// Provider names a translation backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
)

// Providers lists the supported providers in display order.
var Providers = []Provider{ProviderOpenAI, ProviderClaude}

// ParseProvider accepts a provider name in any case.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownProvider, s)
}

func (p Provider) account() string {
	return string(p) + "-api-key"
}

// APIKeys keeps provider keys in their own keystore namespace.
type APIKeys struct {
	store     keystore.Store
	namespace string
}

// NewAPIKeys returns an APIKeys service over store.
func NewAPIKeys(store keystore.Store, namespace string) *APIKeys {
	return &APIKeys{store: store, namespace: namespace}
}

func (a *APIKeys) Set(p Provider, value string) error {
	if _, err := ParseProvider(string(p)); err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return apperrors.NewValidationError("api_key", "empty_key", "api key is empty")
	}
	if err := a.store.Set(a.namespace, p.account(), value); err != nil {
		return fmt.Errorf("set %s api key: %w", p, err)
	}
	return nil
}

// Get returns keystore.ErrNotFound when no key is stored.
func (a *APIKeys) Get(p Provider) (string, error) {
	if _, err := ParseProvider(string(p)); err != nil {
		return "", err
	}
	v, err := a.store.Get(a.namespace, p.account())
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("get %s api key: %w", p, err)
	}
	return v, nil
}

func (a *APIKeys) Delete(p Provider) error {
	if _, err := ParseProvider(string(p)); err != nil {
		return err
	}
	if err := a.store.Delete(a.namespace, p.account()); err != nil {
		return fmt.Errorf("delete %s api key: %w", p, err)
	}
	return nil
}

// Configured reports which providers have a key stored.
func (a *APIKeys) Configured() map[Provider]bool {
	out := make(map[Provider]bool, len(Providers))
	for _, p := range Providers {
		_, ok := keystore.Lookup(a.store, a.namespace, p.account())
		out[p] = ok
	}
	return out
}
