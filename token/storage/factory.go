package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jrsteele09/storefront-admin/internal/config"
	apperrors "github.com/jrsteele09/storefront-admin/internal/errors"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// New returns the token repository selected by cfg.GetTokenStore()
func New(ctx context.Context, cfg config.StorageConfig) (Repo, error) {
	switch backend := strings.ToLower(cfg.GetTokenStore()); backend {
	case BackendMemory:
		return NewInMemoryRepo(), nil
	case BackendFile:
		return NewFileRepo(cfg.GetTokenFile())
	case BackendRedis:
		return NewRedisRepo(ctx, RedisConfig{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
			Key:      cfg.GetRedisKey(),
		})
	default:
		return nil, fmt.Errorf("[storage New] token store %q: %w", backend, apperrors.ErrUnsupported)
	}
}
