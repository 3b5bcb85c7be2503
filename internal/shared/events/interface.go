package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ebioscore/platform/internal/shared/config"
	"go.uber.org/zap"
)

// EventBus defines the interface for event publishing and subscription
type EventBus interface {
	// Publish publishes an event to the bus
	Publish(ctx context.Context, event Event) error

	// Subscribe creates a subscription to events matching a pattern
	Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error

	// Close closes the event bus connection
	Close()

	// Health checks the event bus connection
	Health() error
}

var (
	_ EventBus = (*Bus)(nil)
	_ EventBus = (*HTTPBus)(nil)
)

// NewEventBus creates an event bus, trying gRPC first and falling
// back to the HTTP API when the gRPC port is unreachable.
func NewEventBus(ctx context.Context, cfg config.KurrentDBConfig, log *zap.Logger) (EventBus, string, error) {
	grpcCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	bus, err := NewBus(grpcCtx, cfg, log)
	cancel()
	if err == nil {
		if healthErr := bus.Health(); healthErr == nil {
			return bus, "grpc", nil
		}
		bus.Close()
		err = fmt.Errorf("gRPC health check failed")
	}
	grpcErr := err

	httpCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	httpBus, httpErr := NewHTTPBus(httpCtx, cfg, log)
	if httpErr == nil {
		return httpBus, "http", nil
	}

	return nil, "", fmt.Errorf("failed to connect to KurrentDB: gRPC: %v, HTTP: %v", grpcErr, httpErr)
}
