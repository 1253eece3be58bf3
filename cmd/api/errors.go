package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// error response structure for WebSocket clients.
type wsErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (app *application) logError(r *http.Request, err error) {
	app.logger.Error(err.Error(), zap.String("request_method", r.Method), zap.String("request_url", r.URL.String()))
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	env := envelope{"error": message}
	err := app.writeJSON(w, status, env, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

// The serverErrorResponse() method will be used when our application encounters an
// unexpected problem at runtime. It logs the detailed error message, then sends a
// generic 500 Internal Server Error to the client.
func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	message := "the server encountered a problem and could not process your request"
	app.errorResponse(w, r, http.StatusInternalServerError, message)
}

// The badRequestResponse() method will be used to send a 400 Bad Request status code and
// JSON response to the client.
func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// Note that the errors parameter here has the type map[string]string, which is exactly
// the same as the errors map contained in our Validator type.
func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, errors)
}

// The rateLimitExceededResponse() method will return a 429 too many requests error.
func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	message := "rate limit exceeded"
	app.errorResponse(w, r, http.StatusTooManyRequests, message)
}

// The editConflictResponse() method will be used to send a 409 Conflict status code and
// JSON response to the client.
func (app *application) editConflictResponse(w http.ResponseWriter, r *http.Request) {
	message := "unable to update the record due to an edit conflict, please try again"
	app.errorResponse(w, r, http.StatusConflict, message)
}

// duplicateGoalResponse() reports a goal whose name or id is already taken.
func (app *application) duplicateGoalResponse(w http.ResponseWriter, r *http.Request, field string) {
	app.errorResponse(w, r, http.StatusConflict, map[string]string{field: "a goal with this " + field + " already exists"})
}

// The notFoundResponse() method will be used to send a 404 Not Found status code and
// JSON response to the client.
func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	app.errorResponse(w, r, http.StatusNotFound, message)
}

func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := "the " + r.Method + " method is not supported for this resource"
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

// datasetUnavailableResponse() is returned while no transaction dataset has been
// loaded yet. Clients can retry, or trigger POST /v1/dataset/refresh.
func (app *application) datasetUnavailableResponse(w http.ResponseWriter, r *http.Request) {
	message := "financial data is not available yet, please retry shortly"
	app.errorResponse(w, r, http.StatusServiceUnavailable, message)
}

// feedUnavailableResponse() reports that the upstream transaction feed failed.
func (app *application) feedUnavailableResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	message := "unable to load financial data from the transaction feed"
	app.errorResponse(w, r, http.StatusBadGateway, message)
}

// wsErrorResponse() is a WebSocket method that sends websocket error response.
func (app *application) wsErrorResponse(conn *websocket.Conn, errorCode int, errorMessage string) {
	errorResponse := wsErrorResponse{
		Error:   http.StatusText(errorCode),
		Message: errorMessage,
	}
	response, err := json.Marshal(errorResponse)
	if err != nil {
		app.logger.Error("Failed to marshal error response", zap.Error(err))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "Internal Server Error"))
		conn.Close()
		return
	}
	err = conn.WriteMessage(websocket.TextMessage, response)
	if err != nil {
		app.logger.Error("Failed to send error response", zap.Error(err))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "Internal Server Error"))
		conn.Close()
	}
}

// wsServerErrorResponse() sends a server error response for WebSocket connection.
func (app *application) wsServerErrorResponse(conn *websocket.Conn, message string) {
	app.wsErrorResponse(conn, http.StatusInternalServerError, message)
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "Internal Server Error"))
	conn.Close()
}

// wsMaxConnectionsResponse() sends a maximum connections error for WebSocket connection.
func (app *application) wsMaxConnectionsResponse(conn *websocket.Conn) {
	app.wsErrorResponse(conn, http.StatusServiceUnavailable, "Maximum connections reached")
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Service Unavailable"))
	conn.Close()
}
