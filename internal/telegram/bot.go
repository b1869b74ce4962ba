// Package telegram connects the conversation loop to Telegram. Each chat is
// its own session.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/quietlake/mnemo/internal/auth"
	"github.com/quietlake/mnemo/internal/logger"
)

// ConversationService is the slice of the orchestrator the bot depends on.
type ConversationService interface {
	Converse(ctx context.Context, sessionID, userText string) (string, error)
	Reset(sessionID string)
}

// Bot bridges Telegram updates to the conversation orchestrator.
type Bot struct {
	botAPI *bot.Bot
	agent  ConversationService
	policy *auth.PolicyService
}

// NewBot creates and wires the Telegram bot.
func NewBot(token string, agent ConversationService, policy *auth.PolicyService) (*Bot, error) {
	b := &Bot{
		agent:  agent,
		policy: policy,
	}

	botAPI, err := bot.New(token, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	b.botAPI = botAPI
	return b, nil
}

// Start begins polling for updates. Blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	logger.TelegramInfo("Telegram bot starting...")
	b.botAPI.Start(ctx)
}

func (b *Bot) handleUpdate(ctx context.Context, tgbot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	message := update.Message
	if message.From == nil {
		return
	}

	userID := message.From.ID
	chatID := message.Chat.ID

	if !b.policy.IsAllowed(userID) {
		logger.TelegramInfo("Ignoring message from disallowed user %d", userID)
		return
	}

	sessionID := fmt.Sprintf("tg:%d", chatID)
	text := strings.TrimSpace(message.Text)

	if text == "/reset" || text == "/clear" {
		b.agent.Reset(sessionID)
		b.reply(ctx, tgbot, chatID, "Conversation history cleared.")
		return
	}
	if text == "/start" {
		b.reply(ctx, tgbot, chatID, "Hi! Ask me about anything you've recorded and I'll search your memories.")
		return
	}

	done := make(chan struct{})
	go b.sendTypingAction(ctx, tgbot, chatID, done)

	answer, err := b.agent.Converse(ctx, sessionID, text)
	close(done)
	if err != nil {
		logger.TelegramError("Conversation failed for chat %d: %v", chatID, err)
		b.reply(ctx, tgbot, chatID, "Sorry, something went wrong while looking that up. Please try again.")
		return
	}

	b.reply(ctx, tgbot, chatID, answer)
}

func (b *Bot) reply(ctx context.Context, tgbot *bot.Bot, chatID int64, text string) {
	_, err := tgbot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		logger.TelegramError("Failed to send message to chat %d: %v", chatID, err)
	}
}

// sendTypingAction keeps the typing indicator alive while a turn is running.
// Telegram expires the indicator after ~5 seconds.
func (b *Bot) sendTypingAction(ctx context.Context, tgbot *bot.Bot, chatID int64, done chan struct{}) {
	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	send := func() {
		_, err := tgbot.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: chatID,
			Action: models.ChatActionTyping,
		})
		if err != nil {
			logger.TelegramDebug("Failed to send typing action to chat %d: %v", chatID, err)
		}
	}

	send()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			send()
		}
	}
}
