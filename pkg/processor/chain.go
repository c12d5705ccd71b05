package processor

import (
	"context"
	"log/slog"

	"taskclaw/pkg/message"
)

// Processor handles one class of inbound message. Implementations return
// Skip for messages outside their concern.
type Processor interface {
	Name() string
	Process(ctx context.Context, msg message.InboundMessage, pctx Context) Outcome
}

// Chain applies processors in fixed priority order until one returns a
// terminal outcome. Dispatch itself is O(len(processors)); processing time
// is bounded by the provider calls a processor makes.
type Chain struct {
	processors []Processor
	log        *slog.Logger
}

func NewChain(log *slog.Logger, processors ...Processor) *Chain {
	if log == nil {
		log = slog.Default()
	}

	return &Chain{
		processors: processors,
		log:        log.With("component", "processor.chain"),
	}
}

// Process runs the chain for one message. The first Handled or Error outcome
// wins; if every processor skips, the message is reported as unhandled.
func (c *Chain) Process(ctx context.Context, msg message.InboundMessage, pctx Context) Outcome {
	for _, proc := range c.processors {
		outcome := c.run(ctx, proc, msg, pctx)
		if outcome.Status == StatusSkip {
			continue
		}

		if outcome.Status == StatusError {
			c.log.Warn("Processor returned error outcome",
				"processor", proc.Name(),
				"message_id", msg.ID,
				"kind", string(outcome.ErrorKind),
				"detail", outcome.Detail,
			)
		}

		return outcome
	}

	c.log.Warn("Message not handled by any processor", "message_id", msg.ID, "kind", string(msg.Kind))
	return Skip()
}

// run executes one processor, converting an unexpected panic into an
// Internal error outcome instead of propagating the fault to the caller.
func (c *Chain) run(ctx context.Context, proc Processor, msg message.InboundMessage, pctx Context) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Processor panicked", "processor", proc.Name(), "message_id", msg.ID, "panic", r)
			outcome = Errorf(ErrorInternal, "processor %s panicked: %v", proc.Name(), r)
		}
	}()

	return proc.Process(ctx, msg, pctx)
}
