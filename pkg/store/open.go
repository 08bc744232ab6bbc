package store

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/metricgraph/pkg/config"
	"github.com/matzehuels/metricgraph/pkg/errors"
)

// Open builds the backend named by cfg. dataDir is used by the file backend.
func Open(ctx context.Context, cfg config.StoreConfig, dataDir string, logger *log.Logger) (*Documents, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case config.BackendFile, "":
		b, err = NewFileBackend(dataDir)
	case config.BackendMemory:
		b = NewMemoryBackend()
	case config.BackendRedis:
		rc := DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		b, err = NewRedisBackend(ctx, rc)
	case config.BackendMongo:
		mc := DefaultMongoConfig()
		mc.URI = cfg.MongoURI
		mc.Database = cfg.MongoDatabase
		b, err = NewMongoBackend(ctx, mc)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s store", cfg.Backend)
	}
	if logger != nil {
		logger.Debug("store opened", "backend", b.Name())
	}
	return New(b, WithLogger(logger)), nil
}
