package processor

import (
	"context"
	"strings"

	"taskclaw/pkg/message"
)

const startReply = `Hi! Send me a task in plain words or as a voice message and I will put it in your task manager.

Examples:
- Call the dentist tomorrow at 10:00
- Buy milk, urgent
- Prepare slides for Friday #work`

const helpReply = `Send any text or voice message and I will turn it into a task.

I understand due dates ("tomorrow at 15:00"), priorities ("urgent"), project names, and labels. Voice messages up to 5 minutes are transcribed first.

Commands:
/start - introduction
/help - this message`

// CommandProcessor terminally handles slash commands. It sits first in the
// chain so commands never reach the parsing path.
type CommandProcessor struct{}

func NewCommandProcessor() *CommandProcessor {
	return &CommandProcessor{}
}

func (p *CommandProcessor) Name() string {
	return "command"
}

func (p *CommandProcessor) Process(_ context.Context, msg message.InboundMessage, _ Context) Outcome {
	if msg.Kind != message.KindCommand {
		return Skip()
	}

	command := strings.ToLower(strings.TrimSpace(msg.Text))
	if at := strings.IndexAny(command, " @"); at > 0 {
		command = command[:at]
	}

	switch command {
	case "/start":
		return Handled(&Result{Reply: startReply})
	case "/help":
		return Handled(&Result{Reply: helpReply})
	default:
		return Handled(&Result{Reply: "Unknown command. Try /help, or just send the task as text."})
	}
}
