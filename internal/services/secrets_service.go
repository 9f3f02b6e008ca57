package services

import (
	"context"
	"log/slog"

	"lingobar/internal/secrets"
	"lingobar/pkg/contracts/domain"
)

// SecretsService exposes API key management without ever returning key
// values over HTTP.
type SecretsService interface {
	Configured(ctx context.Context) *domain.APIKeysResponse
	Set(ctx context.Context, provider, value string) error
	Delete(ctx context.Context, provider string) error
}

type secretsService struct {
	keys   *secrets.APIKeys
	logger *slog.Logger
}

// NewSecretsService creates a secrets service over keys
func NewSecretsService(keys *secrets.APIKeys, logger *slog.Logger) SecretsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &secretsService{keys: keys, logger: logger.With(slog.String("service", "secrets"))}
}

func (s *secretsService) Configured(ctx context.Context) *domain.APIKeysResponse {
	out := &domain.APIKeysResponse{Configured: make(map[string]bool)}
	for p, ok := range s.keys.Configured() {
		out.Configured[string(p)] = ok
	}
	return out
}

func (s *secretsService) Set(ctx context.Context, provider, value string) error {
	p, err := secrets.ParseProvider(provider)
	if err != nil {
		return err
	}
	if err := s.keys.Set(p, value); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "api key stored", slog.String("provider", string(p)))
	return nil
}

func (s *secretsService) Delete(ctx context.Context, provider string) error {
	p, err := secrets.ParseProvider(provider)
	if err != nil {
		return err
	}
	if err := s.keys.Delete(p); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "api key removed", slog.String("provider", string(p)))
	return nil
}
