package regions

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/rajaongkir"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/redis"
)

// Provider is the rate provider's address hierarchy surface.
type Provider interface {
	Provinces(ctx context.Context) ([]rajaongkir.Province, error)
	Cities(ctx context.Context, provinceID string) ([]rajaongkir.City, error)
	Subdistricts(ctx context.Context, cityID string) ([]rajaongkir.Subdistrict, error)
}

type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	RegionKey(parts ...string) string
}

type Service interface {
	Provinces(ctx context.Context) ([]rajaongkir.Province, error)
	Cities(ctx context.Context, provinceID string) ([]rajaongkir.City, error)
	Subdistricts(ctx context.Context, cityID string) ([]rajaongkir.Subdistrict, error)
}

type service struct {
	provider Provider
	cache    cache
	ttl      time.Duration
	logg     *logger.Logger
}

// NewService caches lookups for ttl. A nil cache disables caching.
func NewService(provider Provider, c cache, ttl time.Duration, logg *logger.Logger) Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{provider: provider, cache: c, ttl: ttl, logg: logg}
}

func (s *service) Provinces(ctx context.Context) ([]rajaongkir.Province, error) {
	return cached(ctx, s, []string{"provinces"}, func() ([]rajaongkir.Province, error) {
		return s.provider.Provinces(ctx)
	})
}

func (s *service) Cities(ctx context.Context, provinceID string) ([]rajaongkir.City, error) {
	id := strings.TrimSpace(provinceID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "province id is required")
	}
	return cached(ctx, s, []string{"cities", id}, func() ([]rajaongkir.City, error) {
		return s.provider.Cities(ctx, id)
	})
}

func (s *service) Subdistricts(ctx context.Context, cityID string) ([]rajaongkir.Subdistrict, error) {
	id := strings.TrimSpace(cityID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "city id is required")
	}
	return cached(ctx, s, []string{"subdistricts", id}, func() ([]rajaongkir.Subdistrict, error) {
		return s.provider.Subdistricts(ctx, id)
	})
}

// cached serves from Redis when possible. Cache failures are logged and bypassed.
func cached[T any](ctx context.Context, s *service, parts []string, fetch func() ([]T, error)) ([]T, error) {
	if s.provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "region provider unavailable")
	}
	if s.cache == nil {
		return fetch()
	}

	key := s.cache.RegionKey(parts...)
	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var items []T
		if jsonErr := json.Unmarshal([]byte(raw), &items); jsonErr == nil {
			return items, nil
		}
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "regions.cache_corrupt")
	case !errors.Is(err, redis.ErrNil):
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": err.Error()}), "regions.cache_read_failed")
	}

	items, err := fetch()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}
	payload, err := json.Marshal(items)
	if err == nil {
		err = s.cache.Set(ctx, key, string(payload), s.ttl)
	}
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": err.Error()}), "regions.cache_write_failed")
	}
	return items, nil
}
