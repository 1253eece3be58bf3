package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/shopspring/decimal"
)

type recordingNotifier struct {
	name  string
	err   error
	calls *[]string
}

func (r recordingNotifier) Notify(context.Context, data.Notification) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func TestMulti_Notify(t *testing.T) {
	errFirst := errors.New("first failed")
	errThird := errors.New("third failed")
	var calls []string
	record := func(name string, err error) Notifier {
		return recordingNotifier{name: name, err: err, calls: &calls}
	}

	m := Multi{record("first", errFirst), nil, record("second", nil), record("third", errThird)}
	err := m.Notify(context.Background(), data.Notification{Message: "hi"})
	if !errors.Is(err, errFirst) || !errors.Is(err, errThird) {
		t.Errorf("Notify() error = %v, want both failures joined", err)
	}
	if want := []string{"first", "second", "third"}; !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}

	if err := (Multi{}).Notify(context.Background(), data.Notification{}); err != nil {
		t.Errorf("empty Multi Notify() error = %v", err)
	}
}

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster()
	idA, chA := b.Subscribe()
	_, chB := b.Subscribe()

	n := data.Notification{ID: "n1", Message: "Goal reached"}
	if err := b.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	for _, ch := range []<-chan string{chA, chB} {
		var got data.Notification
		if err := json.Unmarshal([]byte(<-ch), &got); err != nil || got.ID != "n1" {
			t.Errorf("received %+v, %v", got, err)
		}
	}

	b.Unsubscribe(idA)
	if _, ok := <-chA; ok {
		t.Error("channel still open after Unsubscribe()")
	}
	b.Unsubscribe(idA)
	if got := b.Broadcast("ping"); got != 1 {
		t.Errorf("Broadcast() = %d, want 1", got)
	}
}

func TestBroadcaster_SlowClient(t *testing.T) {
	b := NewBroadcaster()
	_, ch := b.Subscribe()
	for i := 0; i < clientBuffer; i++ {
		if got := b.Broadcast("x"); got != 1 {
			t.Fatalf("Broadcast() #%d = %d, want 1", i, got)
		}
	}
	if got := b.Broadcast("overflow"); got != 0 {
		t.Errorf("Broadcast() on a full client = %d, want 0", got)
	}
	if len(ch) != clientBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), clientBuffer)
	}
}

type fakeSender struct {
	recipient string
	template  string
	data      map[string]any
	err       error
}

func (f *fakeSender) Send(recipient, templateFile string, data any) error {
	f.recipient = recipient
	f.template = templateFile
	f.data, _ = data.(map[string]any)
	return f.err
}

func TestMailNotifier(t *testing.T) {
	goal := &data.SavingsGoal{ID: "g1", Name: "Holiday", TargetAmount: decimal.NewFromInt(1000), CurrentAmount: decimal.NewFromInt(850), Deadline: "2024-08-01"}
	lookup := func(_ context.Context, id string) (*data.SavingsGoal, error) {
		if id == goal.ID {
			return goal, nil
		}
		return nil, data.ErrGeneralRecordNotFound
	}
	milestone := data.Notification{Type: data.NotificationTypeMilestone, GoalID: "g1", GoalName: "Holiday", Message: "Keep it up!"}

	t.Run("sends milestone", func(t *testing.T) {
		sender := &fakeSender{}
		if err := NewMailNotifier(sender, "me@example.com", lookup).Notify(context.Background(), milestone); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
		if sender.recipient != "me@example.com" || sender.template != "goal_milestone.tmpl" {
			t.Errorf("sent to %q with %q", sender.recipient, sender.template)
		}
		if sender.data["CurrentAmount"] != "€850.00" || sender.data["TargetAmount"] != "€1000.00" || sender.data["Deadline"] != "2024-08-01" {
			t.Errorf("template data = %v", sender.data)
		}
	})

	t.Run("no recipient", func(t *testing.T) {
		sender := &fakeSender{}
		if err := NewMailNotifier(sender, "", lookup).Notify(context.Background(), milestone); err != nil || sender.template != "" {
			t.Errorf("Notify() = %v, sent %q", err, sender.template)
		}
	})

	t.Run("send failure", func(t *testing.T) {
		sender := &fakeSender{err: errors.New("smtp down")}
		if err := NewMailNotifier(sender, "me@example.com", nil).Notify(context.Background(), milestone); err == nil {
			t.Error("Notify() error = nil, want smtp failure")
		}
	})
}

func TestDecodeNotification(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "valid", body: `{"id":"n1","notification_type":"goal_milestone","message":"Goal reached"}`, want: "Goal reached"},
		{name: "malformed", body: `{"id":`, wantErr: true},
		{name: "empty message", body: `{"id":"n1"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeNotification([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeNotification() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Message != tt.want {
				t.Errorf("DecodeNotification() = %+v", got)
			}
		})
	}
}
