package sessions

import (
	"context"
	"strings"

	"github.com/jrsteele09/hireai-gateway/internal/config"
	"github.com/rs/zerolog/log"
)

// StoreConfig is the configuration NewStore reads.
type StoreConfig interface {
	config.SessionConfig
	GetBaseURL() string
}

// NewStore builds the Store selected by configuration. The returned close function releases
// any connection the store holds and is never nil.
func NewStore(ctx context.Context, cfg StoreConfig) (Store, func() error, error) {
	options := CookieOptions{
		Name:   cfg.GetSessionCookieName(),
		MaxAge: cfg.GetSessionMaxAge(),
		Secure: strings.HasPrefix(cfg.GetBaseURL(), "https://"),
	}
	noop := func() error { return nil }

	switch cfg.GetSessionStore() {
	case config.StoreCookie:
		store, err := NewCookieStore(cfg.GetSessionSecret(), options)
		if err != nil {
			return nil, noop, err
		}
		log.Info().Msg("sessions sealed into cookies")
		return store, noop, nil

	case config.StoreRedis:
		client, err := NewRedisClient(ctx, cfg.GetRedisAddr())
		if err != nil {
			return nil, noop, err
		}
		log.Info().Str("addr", cfg.GetRedisAddr()).Msg("sessions stored in redis")
		return NewRepoStore(NewRedisRepo(client, options.MaxAge), options), client.Close, nil

	default:
		log.Info().Msg("sessions stored in memory")
		return NewRepoStore(NewInMemoryRepo(options.MaxAge), options), noop, nil
	}
}
