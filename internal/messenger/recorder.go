package messenger

import (
	"context"
	"sync"
)

// Sent is one message captured by Recorder.
type Sent struct {
	To      Recipient
	Message Message
}

// Recorder implements Sender in memory. SendFunc, when set, decides the
// result of each send; the message is recorded only on success.
type Recorder struct {
	SendFunc func(ctx context.Context, to Recipient, msg Message) error

	mu   sync.Mutex
	sent []Sent
}

func (r *Recorder) Send(ctx context.Context, to Recipient, msg Message) error {
	if r.SendFunc != nil {
		if err := r.SendFunc(ctx, to, msg); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{To: to, Message: msg.Bounded()})
	return nil
}

// Sent returns a copy of everything sent so far.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// SentTo filters by recipient PSID.
func (r *Recorder) SentTo(psid string) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.To.PSID == psid {
			out = append(out, s)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

var _ Sender = (*Recorder)(nil)
