package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmined/aclnotify/internal/notifier"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Hooker receives decoded events.
type Hooker interface {
	Hook(ctx context.Context, ev *notifier.Event)
}

type fetchClient interface {
	PollFetches(ctx context.Context) kgo.Fetches
	Close()
}

// KafkaSource consumes JSON events from a topic as part of a consumer group
// and hands each one to the notifier hook.
type KafkaSource struct {
	cfg    *Config
	client fetchClient
	hook   Hooker
}

func NewKafkaSource(cfg *Config, hook Hooker) (*KafkaSource, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ClientID("aclnotify"),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaSource{cfg: cfg, client: client, hook: hook}, nil
}

// Run polls until ctx is cancelled or the client is closed.
func (k *KafkaSource) Run(ctx context.Context) error {
	slog.Info("kafka source start", "config", k.cfg)
	defer slog.Info("kafka source stop")
	defer k.client.Close()

	for {
		fetches := k.client.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("kafka fetch", "topic", topic, "partition", partition, "error", err)
		})
		fetches.EachRecord(func(rec *kgo.Record) {
			k.handleRecord(ctx, rec)
		})
	}
}

func (k *KafkaSource) handleRecord(ctx context.Context, rec *kgo.Record) {
	ev, err := notifier.DecodeEvent(rec.Value)
	if err != nil {
		slog.Warn("kafka skip malformed event", "topic", rec.Topic, "partition", rec.Partition, "offset", rec.Offset, "error", err)
		return
	}
	k.hook.Hook(ctx, ev)
}
