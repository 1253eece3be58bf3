package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func Test_application_readIDParam(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{name: "uuid", value: "4b0e8f9e-0d7c-4f5e-9b1e-2f4d6c8a1b3c", want: "4b0e8f9e-0d7c-4f5e-9b1e-2f4d6c8a1b3c"},
		{name: "surrounding space is trimmed", value: " goal-1 ", want: "goal-1"},
		{name: "empty", value: "", wantErr: true},
		{name: "inner space", value: "goal 1", wantErr: true},
		{name: "slash", value: "goal/1", wantErr: true},
	}
	app := newTestApplication(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/v1/goals/x", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("goalID", tt.value)
			r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

			got, err := app.readIDParam(r, "goalID")
			if (err != nil) != tt.wantErr {
				t.Errorf("application.readIDParam() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("application.readIDParam() = %q, want %q", got, tt.want)
			}
		})
	}
}

func Test_application_sanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text", input: "How can I save more money?", want: "How can I save more money?"},
		{name: "markup removed", input: "<b>Tom &amp; Jerry</b>", want: "Tom & Jerry"},
		{name: "ampersand kept", input: "Food & Groceries", want: "Food & Groceries"},
		{name: "only markup", input: "<b></b>", want: ""},
		{name: "whitespace trimmed", input: "  hi  ", want: "hi"},
		{name: "encoded markup removed", input: "&lt;img src=x onerror=alert(1)&gt;Trip", want: "Trip"},
		{name: "double encoded markup removed", input: "&amp;lt;img src=x onerror=alert(1)&amp;gt;Trip", want: "Trip"},
		{name: "encoded entity text kept", input: "Tom &amp;amp; Jerry", want: "Tom & Jerry"},
		{name: "comparison kept", input: "rent < 1000", want: "rent < 1000"},
	}
	app := newTestApplication(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := app.sanitize(tt.input); got != tt.want {
				t.Errorf("application.sanitize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func Test_application_readJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"message":"hi"}`},
		{name: "empty body", body: "", wantErr: true},
		{name: "badly formed", body: `{"message":`, wantErr: true},
		{name: "unknown key", body: `{"msg":"hi"}`, wantErr: true},
		{name: "wrong type", body: `{"message":5}`, wantErr: true},
		{name: "two values", body: `{"message":"a"}{"message":"b"}`, wantErr: true},
	}
	app := newTestApplication(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input struct {
				Message string `json:"message"`
			}
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			err := app.readJSON(w, r, &input)
			if (err != nil) != tt.wantErr {
				t.Errorf("application.readJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
