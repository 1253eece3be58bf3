package notifier

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/google/uuid"
)

// clientBuffer is how many messages a slow subscriber may lag behind before
// messages to it are dropped.
const clientBuffer = 16

// Broadcaster fans notifications out to in-process subscribers such as SSE
// connections.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[string]chan string
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[string]chan string)}
}

// Subscribe registers a new client and returns its id and message channel.
func (b *Broadcaster) Subscribe() (string, <-chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	ch := make(chan string, clientBuffer)
	b.clients[id] = ch
	return id, ch
}

// Unsubscribe removes the client and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
	}
}

// Broadcast sends payload to every subscriber without blocking and returns
// how many received it.
func (b *Broadcaster) Broadcast(payload string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	delivered := 0
	for _, ch := range b.clients {
		select {
		case ch <- payload:
			delivered++
		default:
		}
	}
	return delivered
}

func (b *Broadcaster) Notify(_ context.Context, n data.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	b.Broadcast(string(payload))
	return nil
}
