package channel

import (
	"context"

	"taskclaw/pkg/message"
)

// Reply is the user-facing response produced for one inbound message.
type Reply struct {
	Text string
}

// Handler processes one inbound channel message and returns an outbound reply.
type Handler func(context.Context, message.InboundMessage) (Reply, error)

// Adapter bridges one external transport (for example Telegram) into TaskClaw.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}
