package data

import (
	"context"
	"reflect"
	"testing"

	"github.com/Blue-Davinci/SmartSave/internal/kvstore"
	"github.com/Blue-Davinci/SmartSave/internal/validator"
)

func TestChatHistoryModel(t *testing.T) {
	ctx := context.Background()
	now := day(2024, 3, 1)
	m := ChatHistoryModel{Store: kvstore.NewMemoryStore(), Limit: 3}

	history, err := m.History(ctx, now)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].Sender != SenderBot || history[0].Text != WelcomeMessage {
		t.Fatalf("History() = %+v, want welcome message", history)
	}

	history, err = m.Append(ctx, NewChatMessage(SenderUser, "hi", now), NewChatMessage(SenderBot, "hello", now))
	if err != nil || len(history) != 3 {
		t.Fatalf("Append() = %d messages, %v", len(history), err)
	}
	history, err = m.Append(ctx, NewChatMessage(SenderUser, "again", now))
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(history) != 3 || history[0].Text != "hi" || history[2].Text != "again" {
		t.Errorf("Append() over limit = %+v", history)
	}

	stored, err := m.History(ctx, now)
	if err != nil || len(stored) != 3 {
		t.Errorf("History() after append = %d messages, %v", len(stored), err)
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	history, _ = m.History(ctx, now)
	if len(history) != 1 || history[0].Text != WelcomeMessage {
		t.Errorf("History() after clear = %+v", history)
	}
}

func TestChatHistoryModel_AppendSeedsWelcome(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		messages []ChatMessage
		want     []string
	}{
		{
			name:     "first exchange without a prior read",
			messages: []ChatMessage{NewChatMessage(SenderUser, "hi", day(2024, 3, 1)), NewChatMessage(SenderBot, "hello", day(2024, 3, 1))},
			want:     []string{WelcomeMessage, "hi", "hello"},
		},
		{
			name:     "limit still applies after seeding",
			limit:    2,
			messages: []ChatMessage{NewChatMessage(SenderUser, "hi", day(2024, 3, 1)), NewChatMessage(SenderBot, "hello", day(2024, 3, 1))},
			want:     []string{"hi", "hello"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ChatHistoryModel{Store: kvstore.NewMemoryStore(), Limit: tt.limit}
			history, err := m.Append(context.Background(), tt.messages...)
			if err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			got := make([]string, 0, len(history))
			for _, msg := range history {
				got = append(got, msg.Text)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Append() = %v, want %v", got, tt.want)
			}
			if history[0].Text == WelcomeMessage && (history[0].Sender != SenderBot || !history[0].Timestamp.Equal(day(2024, 3, 1))) {
				t.Errorf("welcome message = %+v", history[0])
			}
		})
	}
}

func TestValidateChatMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		valid bool
	}{
		{name: "ok", text: "How can I save more?", valid: true},
		{name: "empty", text: "", valid: false},
		{name: "too long", text: string(make([]byte, MaxChatMessageLength+1)), valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validator.New()
			ValidateChatMessage(v, tt.text)
			if v.Valid() != tt.valid {
				t.Errorf("ValidateChatMessage() valid = %v, want %v (%v)", v.Valid(), tt.valid, v.Errors)
			}
		})
	}
}
