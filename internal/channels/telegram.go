// Package channels connects chat surfaces to the bot API. The Telegram
// bridge is the Go counterpart of the original Discord relay: it forwards
// member questions to the OPTEEE API and renders the answers back.
package channels

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/opteee-ai/opteee/internal/botapi"
	"github.com/opteee-ai/opteee/internal/format"
	"github.com/opteee-ai/opteee/internal/logging"
)

const telegramHelpText = `OPTEEE options trading knowledge search.

Send any question to search the video library.
/health - check the OPTEEE API status
/reset - start a fresh conversation
/help - show this message`

type telegramSendMessageFunc func(context.Context, *bot.SendMessageParams) (*models.Message, error)
type telegramSendChatActionFunc func(context.Context, *bot.SendChatActionParams) (bool, error)

// TelegramBridge relays Telegram messages to the bot API, keeping one
// server-side conversation per chat.
type TelegramBridge struct {
	api *botapi.Client

	mu            sync.Mutex
	conversations map[int64]string

	sendMessage    telegramSendMessageFunc
	sendChatAction telegramSendChatActionFunc
}

// NewTelegramBridge creates a bridge backed by the given API client.
func NewTelegramBridge(api *botapi.Client) *TelegramBridge {
	return &TelegramBridge{
		api:           api,
		conversations: make(map[int64]string),
	}
}

// Listen connects to Telegram and dispatches updates until ctx is done.
func (t *TelegramBridge) Listen(ctx context.Context, token string) error {
	trimmedToken := strings.TrimSpace(token)
	if trimmedToken == "" {
		return errors.New("telegram token is required")
	}

	b, err := bot.New(trimmedToken, bot.WithDefaultHandler(t.handleUpdate))
	if err != nil {
		return fmt.Errorf("connect to telegram bot: %w", err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("fetch telegram bot profile: %w", err)
	}
	logging.Logger().Info("connected to telegram", "bot", "@"+strings.TrimSpace(me.Username))

	t.sendMessage = b.SendMessage
	t.sendChatAction = b.SendChatAction

	b.Start(ctx)
	return nil
}

func (t *TelegramBridge) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}
	t.HandleMessage(ctx, update.Message.Chat.ID, text)
}

// HandleMessage processes one inbound message for a chat.
func (t *TelegramBridge) HandleMessage(ctx context.Context, chatID int64, text string) {
	switch strings.ToLower(text) {
	case "/start", "/help":
		t.reply(ctx, chatID, telegramHelpText, "")
	case "/health":
		t.replyHealth(ctx, chatID)
	case "/reset":
		t.resetConversation(chatID)
		t.reply(ctx, chatID, "Conversation reset.", "")
	default:
		t.replyAnswer(ctx, chatID, text)
	}
}

func (t *TelegramBridge) replyHealth(ctx context.Context, chatID int64) {
	status, err := t.api.Health(ctx)
	if err != nil {
		t.reply(ctx, chatID, "Connection failed: unable to reach the OPTEEE API.", "")
		return
	}
	if !status.Healthy() {
		t.reply(ctx, chatID, fmt.Sprintf("API reachable but reports status %q.", status.Status), "")
		return
	}
	t.reply(ctx, chatID, "OPTEEE API is healthy.", "")
}

func (t *TelegramBridge) replyAnswer(ctx context.Context, chatID int64, query string) {
	t.typing(ctx, chatID)

	resp, err := t.api.Chat(ctx, query, t.conversation(ctx, chatID))
	if err != nil {
		logging.Logger().Warn("chat request failed", "chat_id", chatID, "err", err)
		t.reply(ctx, chatID, "Search failed. The OPTEEE API may be temporarily unavailable.", "")
		return
	}
	t.setConversation(chatID, resp.ConversationID)

	answer := format.LinkDocumentRefs(resp.Answer, resp.Sources)
	t.reply(ctx, chatID, format.TelegramHTML(answer), models.ParseModeHTML)
}

// conversation returns the chat's conversation id, creating one lazily.
// Creation failures degrade to stateless chat rather than blocking the
// question.
func (t *TelegramBridge) conversation(ctx context.Context, chatID int64) string {
	t.mu.Lock()
	id, ok := t.conversations[chatID]
	t.mu.Unlock()
	if ok {
		return id
	}

	created, err := t.api.CreateConversation(ctx)
	if err != nil {
		logging.Logger().Warn("create conversation failed", "chat_id", chatID, "err", err)
		return ""
	}
	t.setConversation(chatID, created)
	return created
}

func (t *TelegramBridge) setConversation(chatID int64, id string) {
	if id == "" {
		return
	}
	t.mu.Lock()
	t.conversations[chatID] = id
	t.mu.Unlock()
}

func (t *TelegramBridge) resetConversation(chatID int64) {
	t.mu.Lock()
	delete(t.conversations, chatID)
	t.mu.Unlock()
}

func (t *TelegramBridge) typing(ctx context.Context, chatID int64) {
	if t.sendChatAction == nil {
		return
	}
	_, _ = t.sendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
}

func (t *TelegramBridge) reply(ctx context.Context, chatID int64, text string, parseMode models.ParseMode) {
	if t.sendMessage == nil {
		return
	}
	_, err := t.sendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: parseMode,
	})
	if err != nil {
		logging.Logger().Warn("send telegram message failed", "chat_id", chatID, "err", err)
	}
}
