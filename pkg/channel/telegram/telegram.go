package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"taskclaw/pkg/channel"
	"taskclaw/pkg/config"
	"taskclaw/pkg/message"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const channelName = "telegram"
const messagePreviewLimit = 240
const typingRefreshInterval = 4 * time.Second

// Adapter bridges Telegram updates into TaskClaw inbound messages and
// delivers chain outcomes back as replies.
type Adapter struct {
	cfg       config.TelegramConfig
	allowFrom map[string]struct{}
	log       *slog.Logger
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("channels.telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:       cfg,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
	}, nil
}

// Name returns the channel identifier used in message metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts Telegram long polling and forwards messages through the shared
// channel handler.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	bot, err := telego.NewBot(strings.TrimSpace(a.cfg.Token))
	if err != nil {
		return fmt.Errorf("initialize telegram bot: %w", err)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			tgMsg := update.Message
			if tgMsg == nil || tgMsg.From == nil {
				continue
			}

			senderID := strconv.FormatInt(tgMsg.From.ID, 10)
			if !a.senderAllowed(senderID) {
				a.log.Debug("Ignoring message from unauthorized sender", "sender_id", senderID)
				continue
			}

			a.handleMessage(ctx, bot, tgMsg, senderID, update.UpdateID, handler)
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, bot *telego.Bot, tgMsg *telego.Message, senderID string, updateID int, handler channel.Handler) {
	chatID := strconv.FormatInt(tgMsg.Chat.ID, 10)

	inbound, ok := a.classify(ctx, bot, tgMsg, senderID, chatID)
	if !ok {
		return
	}
	inbound.Metadata = map[string]string{
		"update_id": strconv.Itoa(updateID),
	}

	a.log.Info("Received message",
		"chat_id", chatID,
		"sender_id", senderID,
		"message_kind", string(inbound.Kind),
		"content", previewText(inbound.Text),
	)

	stopTyping := a.startTypingIndicator(ctx, bot, tgMsg.Chat.ID)

	reply, err := handler(ctx, inbound)
	stopTyping()
	if err != nil {
		a.log.Error("Failed to process inbound message", "error", err)
		reply.Text = "Something went wrong while processing your message. Please try again."
	}

	responseText := strings.TrimSpace(reply.Text)
	if responseText == "" {
		return
	}
	a.log.Info("Sending message", "chat_id", chatID, "content", previewText(responseText))

	if _, err := bot.SendMessage(ctx, tu.Message(tu.ID(tgMsg.Chat.ID), responseText)); err != nil {
		a.log.Error("Failed to send telegram message", "error", err)
	}
}

// classify builds the inbound message for one Telegram update, downloading
// the audio payload for voice/audio/video-note kinds.
func (a *Adapter) classify(ctx context.Context, bot *telego.Bot, tgMsg *telego.Message, senderID, chatID string) (message.InboundMessage, bool) {
	inbound := message.New(channelName, senderID, chatID, message.KindUnknown)
	inbound.ID = channelName + ":" + strconv.Itoa(tgMsg.MessageID)

	switch {
	case strings.TrimSpace(tgMsg.Text) != "":
		inbound.Text = strings.TrimSpace(tgMsg.Text)
		inbound.Kind = message.ClassifyText(inbound.Text)
		return inbound, true

	case tgMsg.Voice != nil:
		inbound.Kind = message.KindVoice
		return a.withAudio(ctx, bot, inbound, tgMsg.Voice.FileID, tgMsg.Voice.MimeType, tgMsg.Voice.Duration, tgMsg.Voice.FileSize)

	case tgMsg.Audio != nil:
		inbound.Kind = message.KindAudio
		return a.withAudio(ctx, bot, inbound, tgMsg.Audio.FileID, tgMsg.Audio.MimeType, tgMsg.Audio.Duration, tgMsg.Audio.FileSize)

	case tgMsg.VideoNote != nil:
		inbound.Kind = message.KindVideoNote
		return a.withAudio(ctx, bot, inbound, tgMsg.VideoNote.FileID, "video/mp4", tgMsg.VideoNote.Duration, int64(tgMsg.VideoNote.FileSize))

	default:
		// Photos, documents, stickers and the like still flow through the
		// chain as unknown so the user gets guidance instead of silence.
		a.log.Debug("Unsupported media, routing as unknown", "chat_id", chatID)
		return inbound, true
	}
}

// withAudio downloads the attachment and attaches it as the audio payload.
func (a *Adapter) withAudio(ctx context.Context, bot *telego.Bot, inbound message.InboundMessage, fileID, mimeType string, durationSeconds int, fileSize int64) (message.InboundMessage, bool) {
	file, err := bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		a.log.Error("Failed to resolve telegram file", "error", err)
		return message.InboundMessage{}, false
	}

	data, err := tu.DownloadFile(bot.FileDownloadURL(file.FilePath))
	if err != nil {
		a.log.Error("Failed to download telegram file", "error", err)
		return message.InboundMessage{}, false
	}

	if mimeType == "" {
		mimeType = "audio/ogg;codecs=opus"
	}

	inbound.Audio = &message.AudioPayload{
		Data:     data,
		MimeType: mimeType,
		Duration: time.Duration(durationSeconds) * time.Second,
		FileSize: fileSize,
	}

	return inbound, true
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}

// startTypingIndicator sends an initial typing action and refreshes it
// periodically until the returned cancel function is called.
func (a *Adapter) startTypingIndicator(ctx context.Context, bot *telego.Bot, chatID int64) context.CancelFunc {
	typingCtx, cancel := context.WithCancel(ctx)

	sendTyping := func() {
		if err := bot.SendChatAction(typingCtx, tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping)); err != nil && typingCtx.Err() == nil {
			a.log.Debug("Failed to send typing indicator", "chat_id", chatID, "error", err)
		}
	}

	sendTyping()

	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-typingCtx.Done():
				return
			case <-ticker.C:
				sendTyping()
			}
		}
	}()

	return cancel
}
