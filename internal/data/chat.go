package data

import (
	"context"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/kvstore"
	"github.com/Blue-Davinci/SmartSave/internal/validator"
)

const ChatHistoryKey = "bot_chat_history"

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

const (
	WelcomeMessage = "Hello! I'm your financial assistant. I can help you understand your spending patterns, find savings opportunities, and answer questions about your finances. What would you like to know?"
	ApologyMessage = "Sorry, I encountered an error processing your request. Please check that your OpenAI API key is configured and accepts API requests, then try again."
)

const MaxChatMessageLength = 2000

// QuickQuestions are suggested prompts for the assistant.
var QuickQuestions = []string{
	"What is my biggest spending category?",
	"Give me details on my last 5 transactions",
	"What are my top 3 expense categories?",
	"How can I save more money?",
}

type ChatMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatHistoryModel keeps the append-only assistant conversation.
// Limit caps the number of kept messages, dropping the oldest; 0 keeps all.
type ChatHistoryModel struct {
	Store kvstore.Store
	Limit int
}

func ValidateChatMessage(v *validator.Validator, text string) {
	v.Check(text != "", "message", "must be provided")
	v.Check(len(text) <= MaxChatMessageLength, "message", "must not be more than 2000 bytes long")
}

func NewChatMessage(sender, text string, now time.Time) ChatMessage {
	return ChatMessage{Sender: sender, Text: text, Timestamp: now.UTC()}
}

// History returns the conversation, seeding it with the welcome message when empty.
func (m ChatHistoryModel) History(ctx context.Context, now time.Time) ([]ChatMessage, error) {
	ctx, cancel := contextGenerator(ctx, DefaultStoreContextTimeout)
	defer cancel()

	history, err := kvstore.UpdateJSON(ctx, m.Store, ChatHistoryKey, []ChatMessage{}, func(messages []ChatMessage) ([]ChatMessage, error) {
		if len(messages) > 0 {
			return messages, kvstore.ErrNoChange
		}
		return []ChatMessage{NewChatMessage(SenderBot, WelcomeMessage, now)}, nil
	})
	return history, mapStoreError(err)
}

// Append adds messages to the end of the conversation and returns the stored log.
// An empty conversation always starts with the welcome message, stamped with
// the time of the first appended message.
func (m ChatHistoryModel) Append(ctx context.Context, messages ...ChatMessage) ([]ChatMessage, error) {
	ctx, cancel := contextGenerator(ctx, DefaultStoreContextTimeout)
	defer cancel()

	history, err := kvstore.UpdateJSON(ctx, m.Store, ChatHistoryKey, []ChatMessage{}, func(current []ChatMessage) ([]ChatMessage, error) {
		if len(current) == 0 {
			seededAt := time.Now()
			if len(messages) > 0 {
				seededAt = messages[0].Timestamp
			}
			current = []ChatMessage{NewChatMessage(SenderBot, WelcomeMessage, seededAt)}
		}
		next := append(current, messages...)
		if m.Limit > 0 && len(next) > m.Limit {
			next = next[len(next)-m.Limit:]
		}
		return next, nil
	})
	return history, mapStoreError(err)
}

// Clear drops the whole conversation.
func (m ChatHistoryModel) Clear(ctx context.Context) error {
	ctx, cancel := contextGenerator(ctx, DefaultStoreContextTimeout)
	defer cancel()
	return kvstore.Remove(ctx, m.Store, ChatHistoryKey)
}
