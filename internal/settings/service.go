package settings

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cache"
	"github.com/noah-isme/backend-pos/internal/store"
)

const cacheKey = "pos:settings"

// Service serves the terminal-facing settings snapshot. Settings live in the
// store, maintained by the back office; when no row exists yet the configured
// defaults apply so a fresh install can still sell.
type Service struct {
	Store    store.Repository
	Cache    cache.Cache
	Defaults store.Settings
	Log      zerolog.Logger
}

// Get returns the current settings snapshot, cached.
func (s *Service) Get(ctx context.Context) (store.Settings, error) {
	var cached store.Settings
	if s.Cache.GetJSON(ctx, cacheKey, &cached) {
		return cached, nil
	}
	current, err := s.Store.GetSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return s.Defaults, nil
	}
	if err != nil {
		return store.Settings{}, err
	}
	s.Cache.SetJSON(ctx, cacheKey, current)
	return current, nil
}
