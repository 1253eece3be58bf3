package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/assistant"
	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/Blue-Davinci/SmartSave/internal/validator"
	"go.uber.org/zap"
)

// chatExchange is one question and the assistant's reply.
type chatExchange struct {
	UserMessage data.ChatMessage `json:"user_message"`
	Reply       data.ChatMessage `json:"reply"`
}

// converse() runs a single chat turn: the sanitized question is stored, the
// assistant is asked with a summary of the loaded dataset and the reply is
// stored. Assistant failures are answered with an apology instead of an error.
func (app *application) converse(ctx context.Context, rawText string) (*chatExchange, error) {
	text := app.sanitize(rawText)
	v := validator.New()
	if data.ValidateChatMessage(v, text); !v.Valid() {
		return nil, &data.ValidationError{Errors: v.Errors}
	}

	userMessage := data.NewChatMessage(data.SenderUser, text, time.Now())
	if _, err := app.models.ChatHistory.Append(ctx, userMessage); err != nil {
		return nil, err
	}

	collections, _, _ := app.dataset.snapshot()
	summary := assistant.BuildFinancialSummary(collections, app.config.feed.periodMonths)

	answer, err := app.assistant.Ask(ctx, app.assistantAPIKey(ctx), summary, text)
	if err != nil {
		app.logger.Warn("assistant request failed", zap.Error(err))
		answer = data.ApologyMessage
	}
	reply := data.NewChatMessage(data.SenderBot, answer, time.Now())
	if _, err := app.models.ChatHistory.Append(ctx, reply); err != nil {
		return nil, err
	}
	return &chatExchange{UserMessage: userMessage, Reply: reply}, nil
}

// assistantAPIKey() returns the stored credential, falling back to the
// configured key when none is stored or it cannot be read.
func (app *application) assistantAPIKey(ctx context.Context) string {
	key, err := app.models.Credentials.GetAPIKey(ctx)
	switch {
	case err == nil:
		return key
	case errors.Is(err, data.ErrCredentialNotFound):
	default:
		app.logger.Error("unable to read stored assistant credential", zap.Error(err))
	}
	return app.config.assistant.apiKey
}

// getChatHistoryHandler() returns the conversation, seeded with the welcome
// message on first use.
func (app *application) getChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	history, err := app.models.ChatHistory.History(r.Context(), time.Now())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	err = app.writeJSON(w, http.StatusOK, envelope{"messages": history}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) askAssistantHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Message string `json:"message"`
	}
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	exchange, err := app.converse(r.Context(), input.Message)
	if err != nil {
		var validationErr *data.ValidationError
		if errors.As(err, &validationErr) {
			app.failedValidationResponse(w, r, validationErr.Errors)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}
	err = app.writeJSON(w, http.StatusCreated, envelope{"exchange": exchange}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) clearChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	err := app.models.ChatHistory.Clear(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	err = app.writeJSON(w, http.StatusOK, envelope{"message": "chat history cleared"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) getQuickQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	err := app.writeJSON(w, http.StatusOK, envelope{"quick_questions": data.QuickQuestions}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// setAssistantCredentialHandler() stores the assistant API key. The key is
// never echoed back.
func (app *application) setAssistantCredentialHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		APIKey string `json:"api_key"`
	}
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	v := validator.New()
	if data.ValidateAPIKey(v, input.APIKey); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}
	err = app.models.Credentials.SetAPIKey(r.Context(), input.APIKey)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	err = app.writeJSON(w, http.StatusOK, envelope{
		"message":   "API key saved",
		"encrypted": len(app.models.Credentials.EncryptionKey) > 0,
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) removeAssistantCredentialHandler(w http.ResponseWriter, r *http.Request) {
	err := app.models.Credentials.RemoveAPIKey(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	err = app.writeJSON(w, http.StatusOK, envelope{"message": "API key removed"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
