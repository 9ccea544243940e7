package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/symbolic-cat-go/config"
)

// timeoutStore bounds every call of the wrapped store. Both reads and writes get
// their own deadline so a hung backend fails the request instead of blocking it.
type timeoutStore struct {
	Store
	timeout time.Duration
}

// WithTimeout wraps store so every Get and Put runs under timeout.
func WithTimeout(store Store, timeout time.Duration) Store {
	if timeout <= 0 {
		return store
	}
	return &timeoutStore{Store: store, timeout: timeout}
}

func (s *timeoutStore) Get(ctx context.Context, resource string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Store.Get(ctx, resource)
}

func (s *timeoutStore) Put(ctx context.Context, resource string, body []byte, cond Condition) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Store.Put(ctx, resource, body, cond)
}

// Open builds the store selected by cfg.Backend, already wrapped with the
// configured timeout. The returned close function releases backend resources.
func Open(ctx context.Context, cfg *config.StoreConfig, logger *slog.Logger) (Store, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() {}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var (
		store   Store
		closeFn = noop
	)
	switch cfg.Backend {
	case config.BackendKV:
		store = NewHTTPStore(cfg.BaseURL, cfg.Token, httpClient)
	case config.BackendGist:
		store = NewGistStore(cfg.GistAPIURL, cfg.GistID, cfg.GistToken, httpClient)
	case config.BackendPostgres:
		pool, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		store = NewPostgresStore(pool)
		closeFn = pool.Close
	case config.BackendS3:
		client, err := NewS3Client(ctx, S3Options{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, noop, err
		}
		store = NewS3Store(client, cfg.S3Bucket, cfg.S3Prefix)
	case config.BackendRedis:
		rdb, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		store = NewRedisStore(rdb, cfg.RedisPrefix)
		closeFn = func() { _ = rdb.Close() }
	case config.BackendMemory:
		store = NewMemoryStore()
	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if !store.Conditional() {
		logger.Warn("store backend does not enforce conditional writes; run a single instance to avoid lost updates",
			"backend", store.Name())
	}
	return WithTimeout(store, cfg.Timeout), closeFn, nil
}
