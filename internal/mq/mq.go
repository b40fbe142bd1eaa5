// Package mq provides publish-only message broker clients. Progress events
// flow outbound only; consumers live in other services.
package mq

import (
	"context"
	"fmt"

	"github.com/pandoras-vault/apiserver/config"
)

// Publisher is the broker-agnostic outbound operation set.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// New selects and constructs a broker client from config. An empty driver
// returns nil: eventing is optional.
func New(ctx context.Context, cfg config.EventsConfig) (Publisher, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "rabbitmq":
		return NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}
