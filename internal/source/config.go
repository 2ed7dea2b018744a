package source

import (
	"fmt"
	"log/slog"
)

const (
	DefaultTopic = "aclnotify.events"
	DefaultGroup = "aclnotify"
)

type Config struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Group   string   `mapstructure:"group"`
}

// Enabled reports whether a Kafka source should be started.
func (c *Config) Enabled() bool {
	return len(c.Brokers) > 0
}

func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka `topic` required")
	}
	if c.Group == "" {
		return fmt.Errorf("kafka `group` required")
	}
	return nil
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("brokers", c.Brokers),
		slog.String("topic", c.Topic),
		slog.String("group", c.Group),
	)
}
