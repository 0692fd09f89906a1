package store

import (
	"fmt"

	"zantgate/internal/models"
)

// New instantiates a store backend based on the provided configuration.
// Supported backends:
//   - memory: in-process maps with bounded capacity and a sweeper goroutine
//   - redis: shared Redis database, for multi-instance deployments
func New(config models.StoreConfig) (Store, error) {
	switch config.Type {
	case models.StoreTypeMemory:
		return NewMemoryStore(config.Memory.MaxEntries, config.Memory.SweepInterval), nil
	case models.StoreTypeRedis:
		return NewRedisStore(config.Redis)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}
