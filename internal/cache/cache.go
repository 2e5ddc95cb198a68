package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dharmasatrya/flightfinder/internal/models"
)

// Cache stores complete search results keyed by the search parameters.
type Cache interface {
	Get(ctx context.Context, req models.SearchRequest) (*models.SearchResult, bool)
	Set(ctx context.Context, req models.SearchRequest, result *models.SearchResult) error
	Close() error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     "localhost:6379",
		Password: "",
		DB:       0,
		TTL:      5 * time.Minute,
	}
}

func NewRedisCache(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connecting to redis at %s", cfg.Addr)
	}

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, req models.SearchRequest) (*models.SearchResult, bool) {
	key := Key(req)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var result models.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return &result, true
}

// Set stores result unless it is partial; partial results depend on how far
// the pairing calls got before the deadline and are not reusable.
func (c *RedisCache) Set(ctx context.Context, req models.SearchRequest, result *models.SearchResult) error {
	if !Cacheable(result) {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "encoding search result")
	}

	return errors.Wrap(c.client.Set(ctx, Key(req), data, c.ttl).Err(), "writing search result")
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(ctx context.Context, req models.SearchRequest) (*models.SearchResult, bool) {
	return nil, false
}

func (c *NoOpCache) Set(ctx context.Context, req models.SearchRequest, result *models.SearchResult) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

// Cacheable reports whether result is complete enough to be served again.
func Cacheable(result *models.SearchResult) bool {
	return result != nil && !result.Partial
}

// Key derives the cache key from every parameter that reaches a provider.
// Filters and sorting are applied after the cache and are not part of it.
func Key(req models.SearchRequest) string {
	req = req.WithDefaults()
	keyData := struct {
		TripType      models.TripType
		Origin        string
		Destination   string
		DepartureDate string
		ReturnDate    string
		Legs          []models.Leg
		Passengers    models.Passengers
		CabinClass    models.CabinClass
		MaxStops      *int
		Currency      string
	}{
		TripType:      req.TripType,
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
		Legs:          req.Legs,
		Passengers:    req.Passengers,
		CabinClass:    req.CabinClass,
		MaxStops:      req.MaxStops,
		Currency:      req.Currency,
	}

	if req.ReturnDate != nil {
		keyData.ReturnDate = *req.ReturnDate
	}

	data, _ := json.Marshal(keyData)
	hash := sha256.Sum256(data)
	return "flight:" + hex.EncodeToString(hash[:])
}
