package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/openmined/aclnotify/internal/db"
	"github.com/openmined/aclnotify/internal/utils"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

type BlobConfig struct {
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	Endpoint   string `mapstructure:"endpoint"`
}

func (c *BlobConfig) Validate() error {
	if c.BucketName == "" {
		return fmt.Errorf("blob `bucket_name` required")
	}
	if c.Region == "" {
		return fmt.Errorf("blob `region` required")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("blob `access_key` required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("blob `secret_key` required")
	}
	return nil
}

type Config struct {
	Driver        string        `mapstructure:"driver"`
	Path          string        `mapstructure:"path"`
	DSN           string        `mapstructure:"dsn"`
	Blob          BlobConfig    `mapstructure:"blob"`
	UserCacheTTL  time.Duration `mapstructure:"user_cache_ttl"`
	UserCacheSize int           `mapstructure:"user_cache_size"`
}

func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSqlite:
		if c.Path == "" {
			return fmt.Errorf("store `path` is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DSN == "" {
			return fmt.Errorf("store `dsn` is required for the postgres driver")
		}
	case DriverS3:
		if err := c.Blob.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Driver)
	}
	if c.UserCacheTTL < 0 {
		return fmt.Errorf("store `user_cache_ttl` must not be negative")
	}
	return nil
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("driver", c.Driver),
		slog.String("path", c.Path),
		slog.String("dsn", utils.MaskSecret(c.DSN)),
		slog.String("bucket", c.Blob.BucketName),
		slog.Duration("user_cache_ttl", c.UserCacheTTL),
	)
}

// OpenSQL opens the SQL backed store for the sqlite and postgres drivers.
func OpenSQL(cfg *Config) (*SQLStore, error) {
	switch cfg.Driver {
	case DriverSqlite:
		conn, err := db.NewSqliteDB(db.WithPath(cfg.Path))
		if err != nil {
			return nil, err
		}
		return NewSQLStore(conn)
	case DriverPostgres:
		conn, err := db.NewPostgresDB(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(conn)
	default:
		return nil, fmt.Errorf("driver %q is not SQL backed", cfg.Driver)
	}
}

// New opens the configured store, wrapping it with a user record cache when
// user_cache_ttl is set.
func New(cfg *Config) (Store, error) {
	var s Store
	switch cfg.Driver {
	case DriverS3:
		blobStore, err := NewBlobStoreWithConfig(&cfg.Blob)
		if err != nil {
			return nil, err
		}
		s = blobStore
	default:
		sqlStore, err := OpenSQL(cfg)
		if err != nil {
			return nil, err
		}
		s = sqlStore
	}

	if cfg.UserCacheTTL > 0 {
		size := cfg.UserCacheSize
		if size <= 0 {
			size = 1024
		}
		return NewCachedLoader(s, size, cfg.UserCacheTTL, ResourceUser), nil
	}
	return s, nil
}
