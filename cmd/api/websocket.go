package main

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsReadLimit = 8 << 10

type wsChatRequest struct {
	Message string `json:"message"`
}

// checkWebSocketOrigin() accepts same-origin requests, requests without an
// Origin header and the trusted CORS origins.
func (app *application) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	return slices.Contains(app.config.cors.trustedOrigins, origin) || slices.Contains(app.config.cors.trustedOrigins, "*")
}

func (app *application) acquireWSConnection() bool {
	app.Mutex.Lock()
	defer app.Mutex.Unlock()
	if app.wsConnections >= app.config.ws.MaxConcurrentConnections {
		return false
	}
	app.wsConnections++
	return true
}

func (app *application) releaseWSConnection() {
	app.Mutex.Lock()
	defer app.Mutex.Unlock()
	app.wsConnections--
}

// assistantWebSocketHandler() serves the chat over a websocket. The client
// receives the history on connect, then one reply per {"message": ...} frame.
func (app *application) assistantWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := app.WebSocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		app.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	if !app.acquireWSConnection() {
		app.wsMaxConnectionsResponse(conn)
		return
	}
	defer app.releaseWSConnection()
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	history, err := app.models.ChatHistory.History(r.Context(), time.Now())
	if err != nil {
		app.logger.Error("unable to load chat history", zap.Error(err))
		app.wsServerErrorResponse(conn, "unable to load chat history")
		return
	}
	if err := conn.WriteJSON(envelope{"messages": history}); err != nil {
		return
	}

	for {
		var request wsChatRequest
		if err := conn.ReadJSON(&request); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				app.logger.Info("websocket client closed unexpectedly", zap.Error(err))
			}
			return
		}
		exchange, err := app.converse(r.Context(), request.Message)
		if err != nil {
			var validationErr *data.ValidationError
			if errors.As(err, &validationErr) {
				app.wsErrorResponse(conn, http.StatusUnprocessableEntity, validationErr.Error())
				continue
			}
			app.logger.Error("websocket chat failed", zap.Error(err))
			app.wsServerErrorResponse(conn, "the server encountered a problem and could not process your request")
			return
		}
		if err := conn.WriteJSON(envelope{"exchange": exchange}); err != nil {
			app.logger.Error("websocket write failed", zap.Error(err))
			return
		}
	}
}
