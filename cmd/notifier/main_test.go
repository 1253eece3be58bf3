package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/data"
)

func Test_messageLog_write(t *testing.T) {
	fixed := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.FixedZone("EAT", 3*60*60))
	tests := []struct {
		name          string
		notifications []data.Notification
		want          string
		wantErr       bool
	}{
		{
			name:          "single message",
			notifications: []data.Notification{{ID: "1", Message: "Congratulations! You've reached your savings goal of €500.00!"}},
			want:          "[2024-03-05T11:30:00Z] Congratulations! You've reached your savings goal of €500.00!\n",
		},
		{
			name: "messages are appended in order",
			notifications: []data.Notification{
				{ID: "1", Message: "first"},
				{ID: "2", Message: "second"},
			},
			want: "[2024-03-05T11:30:00Z] first\n[2024-03-05T11:30:00Z] second\n",
		},
		{
			name:          "empty message is rejected",
			notifications: []data.Notification{{ID: "1"}},
			want:          "",
			wantErr:       true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := newMessageLog(&buf)
			l.now = func() time.Time { return fixed }
			var err error
			for _, n := range tt.notifications {
				if err = l.write(n); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("messageLog.write() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("messageLog.write() wrote %q, want %q", got, tt.want)
			}
		})
	}
}
