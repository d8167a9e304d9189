package services

import (
	"context"

	"github.com/google/uuid"

	redisclients "github.com/mirelia/companion-backend/internal/clients/redis"
	"github.com/mirelia/companion-backend/internal/logger"
	"github.com/mirelia/companion-backend/internal/sse"
)

// SSEEmitter fans an event out to the local hub and, when a bus is wired,
// to every other API instance through Redis pub/sub. Messages are stamped
// with an origin id so the forwarder can drop this instance's own echoes.
type SSEEmitter interface {
	Emit(ctx context.Context, msg sse.SSEMessage)
	StartForwarder(ctx context.Context) error
}

type hubEmitter struct {
	log    *logger.Logger
	hub    *sse.SSEHub
	bus    redisclients.SSEBus
	origin string
}

func NewHubEmitter(log *logger.Logger, hub *sse.SSEHub, bus redisclients.SSEBus) SSEEmitter {
	return &hubEmitter{
		log:    log.With("service", "SSEEmitter"),
		hub:    hub,
		bus:    bus,
		origin: uuid.New().String(),
	}
}

func (e *hubEmitter) Emit(ctx context.Context, msg sse.SSEMessage) {
	if e == nil {
		return
	}
	msg.Origin = e.origin
	if e.hub != nil {
		e.hub.Broadcast(msg)
	}
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, msg); err != nil {
		e.log.Warn("SSE bus publish failed", "channel", msg.Channel, "error", err)
	}
}

func (e *hubEmitter) StartForwarder(ctx context.Context) error {
	if e.bus == nil || e.hub == nil {
		return nil
	}
	return e.bus.StartForwarder(ctx, func(m sse.SSEMessage) {
		if m.Origin == e.origin {
			return
		}
		e.hub.Broadcast(m)
	})
}
