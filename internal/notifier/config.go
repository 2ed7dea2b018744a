package notifier

import (
	"fmt"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/aclnotify/internal/utils"
)

const (
	DefaultManagementSpace = "management"
	DefaultUsersSubpath    = "users"
	DefaultParallelism     = 1
)

type Config struct {
	ManagementSpace string   `mapstructure:"management_space"`
	UsersSubpath    string   `mapstructure:"users_subpath"`
	FromAddress     string   `mapstructure:"from_address"`
	FromName        string   `mapstructure:"from_name"`
	Subpaths        []string `mapstructure:"subpaths"`
	Parallelism     int      `mapstructure:"parallelism"`
}

func (c *Config) setDefaults() {
	if c.ManagementSpace == "" {
		c.ManagementSpace = DefaultManagementSpace
	}
	if c.UsersSubpath == "" {
		c.UsersSubpath = DefaultUsersSubpath
	}
	if c.Parallelism <= 0 {
		c.Parallelism = DefaultParallelism
	}
}

func (c *Config) Validate() error {
	if c.FromAddress != "" {
		if err := utils.ValidateEmail(c.FromAddress); err != nil {
			return fmt.Errorf("notifier `from_address`: %w", err)
		}
	}
	for _, p := range c.Subpaths {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("notifier `subpaths`: invalid pattern %q", p)
		}
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("notifier `parallelism` must not be negative")
	}
	return nil
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("management_space", c.ManagementSpace),
		slog.String("users_subpath", c.UsersSubpath),
		slog.String("from_address", c.FromAddress),
		slog.Any("subpaths", c.Subpaths),
		slog.Int("parallelism", c.Parallelism),
	)
}
