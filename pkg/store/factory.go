package store

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-training/oauth2-implicit/pkg/core"
)

// StoreType represents the type of store backend.
type StoreType string

const (
	// StoreTypeMemory represents in-memory storage.
	StoreTypeMemory StoreType = "memory"
	// StoreTypeFile represents a JSON file, the local-storage equivalent.
	StoreTypeFile StoreType = "file"
	// StoreTypeRedis represents Redis storage.
	StoreTypeRedis StoreType = "redis"
	// StoreTypeSQLite represents SQLite storage.
	StoreTypeSQLite StoreType = "sqlite"
)

// Config contains configuration for creating a store.
type Config struct {
	// Type specifies the store type (memory, file, redis or sqlite).
	Type StoreType
	// Path is the file or database path for file and sqlite stores.
	Path string
	// Redis contains Redis-specific configuration.
	Redis RedisOptions
}

// Factory creates store instances based on configuration.
type Factory struct {
	config Config
}

// NewFactory creates a new store factory with the provided configuration.
func NewFactory(config Config) *Factory {
	return &Factory{
		config: config,
	}
}

// Create creates and returns a new store instance based on the factory configuration.
// Returns an error if the store type is invalid or if store creation fails.
func (f *Factory) Create() (core.TokenStore, error) {
	switch f.config.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeFile:
		path := f.config.Path
		if path == "" {
			path = DefaultFileStorePath()
		}
		return NewFileStore(path), nil
	case StoreTypeRedis:
		return NewRedisStoreFromOptions(f.config.Redis)
	case StoreTypeSQLite:
		return OpenSQLiteStore(f.config.Path)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", f.config.Type)
	}
}

// NewStore is a convenience function that creates a store directly from configuration.
// It's equivalent to NewFactory(config).Create().
func NewStore(config Config) (core.TokenStore, error) {
	factory := NewFactory(config)
	return factory.Create()
}

// ParseStoreType parses a string into a StoreType.
// Returns StoreTypeMemory for invalid inputs.
func ParseStoreType(s string) StoreType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file":
		return StoreTypeFile
	case "redis":
		return StoreTypeRedis
	case "sqlite":
		return StoreTypeSQLite
	default:
		return StoreTypeMemory
	}
}

// String returns the string representation of a StoreType.
func (t StoreType) String() string {
	return string(t)
}

// IsValid returns true if the StoreType is valid.
func (t StoreType) IsValid() bool {
	switch t {
	case StoreTypeMemory, StoreTypeFile, StoreTypeRedis, StoreTypeSQLite:
		return true
	default:
		return false
	}
}

// Close releases the store's resources if it holds any.
func Close(s core.TokenStore) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// DefaultConfig returns the default store configuration (file store at the default path).
func DefaultConfig() Config {
	return Config{
		Type: StoreTypeFile,
		Path: DefaultFileStorePath(),
	}
}

// MemoryConfig creates a memory store configuration.
func MemoryConfig() Config {
	return Config{
		Type: StoreTypeMemory,
	}
}

// RedisConfig creates a Redis store configuration with the provided options.
func RedisConfig(redisOpts RedisOptions) Config {
	return Config{
		Type:  StoreTypeRedis,
		Redis: redisOpts,
	}
}
