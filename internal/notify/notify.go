// Package notify carries user facing alerts from state modules to
// whatever view is showing them.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Notifier interface {
	Alert(ctx context.Context, msg string)
}

type Message struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

const maxPending = 50

// Inbox logs every alert and keeps the latest ones until a view drains them.
type Inbox struct {
	mu      sync.Mutex
	pending []Message
}

func NewInbox() *Inbox {
	return &Inbox{}
}

func (in *Inbox) Alert(ctx context.Context, msg string) {
	logging.FromContext(ctx).Warn("user_alert", "message", msg)

	in.mu.Lock()
	defer in.mu.Unlock()
	in.pending = append(in.pending, Message{Text: msg, At: time.Now().UTC()})
	if len(in.pending) > maxPending {
		in.pending = in.pending[len(in.pending)-maxPending:]
	}
}

// Drain returns pending alerts oldest first and forgets them.
func (in *Inbox) Drain() []Message {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.pending
	in.pending = nil
	return out
}

// Last returns the most recent alert text, or "".
func (in *Inbox) Last() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.pending) == 0 {
		return ""
	}
	return in.pending[len(in.pending)-1].Text
}
