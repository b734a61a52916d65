package messaging

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"reggie/internal/config"
)

// Open connects the transport selected by cfg.Driver.
func Open(ctx context.Context, cfg config.TransportConfig, log zerolog.Logger) (Transport, error) {
	switch cfg.Driver {
	case "amqp":
		return NewRabbitClient(cfg.AMQP.URL, cfg.AMQP.ExchangeType, log)
	case "kafka":
		return NewKafkaClient(cfg.Kafka.Brokers, log)
	case "gossip":
		return NewGossipPubSub(ctx, GossipOptions{
			ListenAddrs:     cfg.Gossip.ListenAddrs,
			Bootstrap:       cfg.Gossip.Bootstrap,
			Rendezvous:      cfg.Gossip.Rendezvous,
			EnableMDNS:      cfg.Gossip.EnableMDNS,
			IdentityKeyFile: cfg.Gossip.IdentityKeyFile,
		}, log)
	case "memory", "":
		return NewMemoryPubSub(), nil
	default:
		return nil, fmt.Errorf("unknown transport driver %q", cfg.Driver)
	}
}
