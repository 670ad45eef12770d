package middleware

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "dmbot.out"

// Counters summarizes what a handler sent back. Sends queued on the async
// dispatcher land after the handler returns and are not counted.
type Counters struct {
	Messages  int
	Documents int
	Keyboard  bool
}

type outbox struct {
	mu sync.Mutex
	Counters
}

func (o *outbox) record(what interface{}, opts []interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := what.(*tele.Document); ok {
		o.Documents++
	} else {
		o.Messages++
	}
	if hasKeyboard(opts) {
		o.Keyboard = true
	}
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// countingContext records successful sends made through tele.Context.
type countingContext struct {
	tele.Context
	out *outbox
}

func (m countingContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.out.record(what, opts)
	}
	return err
}

func (m countingContext) Reply(what interface{}, opts ...interface{}) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.out.record(what, opts)
	}
	return err
}

func (m countingContext) Edit(what interface{}, opts ...interface{}) error {
	err := m.Context.Edit(what, opts...)
	if err == nil {
		m.out.record(what, opts)
	}
	return err
}

// MessageMetricsMiddleware counts the messages and documents a handler sends.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		out := &outbox{}
		c.Set(countersKey, out)
		return next(countingContext{Context: c, out: out})
	}
}

// GetCounters returns what has been sent so far for the update carried by c.
func GetCounters(c tele.Context) Counters {
	out, ok := c.Get(countersKey).(*outbox)
	if !ok {
		return Counters{}
	}
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.Counters
}
