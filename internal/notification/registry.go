package notification

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Handle identifies a registered notification.
type Handle int

type notification struct {
	name   string
	topic  string
	format string
	arity  int

	params    []any
	text      string
	pending   bool
	version   uint64
	updatedAt time.Time
	sentAt    time.Time
}

// Pending is a rendered notification waiting to be published.
type Pending struct {
	Handle  Handle
	Name    string
	Topic   string
	Text    string
	version uint64
}

// Info describes a notification for the local API.
type Info struct {
	Name      string    `json:"name"`
	Topic     string    `json:"topic"`
	Format    string    `json:"format"`
	Arity     int       `json:"arity"`
	Text      string    `json:"text"`
	Pending   bool      `json:"pending"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	SentAt    time.Time `json:"sent_at,omitzero"`
}

// Registry holds named notifications with printf-style templates.
//
// Update renders the text and marks the notification pending; it never
// performs I/O. The Publisher sends pending notifications in the background.
//
// All public methods are thread-safe.
type Registry struct {
	mu     sync.Mutex
	items  []*notification
	byName map[string]Handle
	now    func() time.Time
	logger Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Handle),
		now:    time.Now,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register adds a notification.
//
// Parameters:
//   - name: Unique notification name
//   - topic: Topic the rendered text is published under
//   - format: fmt template, e.g. "cloudNumber=%d"
//   - arity: Number of parameters every Update must supply
//
// Returns:
//   - Handle: Used for Update
//   - error: ErrDuplicateName, ErrInvalidNotification or ErrInvalidFormat
func (r *Registry) Register(name, topic, format string, arity int) (Handle, error) {
	if name == "" || topic == "" || arity < 0 {
		return 0, fmt.Errorf("%w: name=%q topic=%q arity=%d", ErrInvalidNotification, name, topic, arity)
	}
	verbs, ok := countVerbs(format)
	if !ok || verbs != arity {
		return 0, fmt.Errorf("%w: %q has %d verbs, arity %d", ErrInvalidFormat, format, verbs, arity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	h := Handle(len(r.items))
	r.items = append(r.items, &notification{
		name:   name,
		topic:  topic,
		format: format,
		arity:  arity,
	})
	r.byName[name] = h

	r.logger.Debug("notification registered", "name", name, "topic", topic)
	return h, nil
}

// Update stores new parameters, renders the text and marks the notification
// pending. A later Update before the publisher runs replaces the earlier one.
func (r *Registry) Update(h Handle, params ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.itemLocked(h)
	if err != nil {
		return err
	}
	if len(params) != n.arity {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrArityMismatch, n.name, n.arity, len(params))
	}

	n.params = append(n.params[:0], params...)
	n.text = fmt.Sprintf(n.format, params...)
	n.pending = true
	n.version++
	n.updatedAt = r.now()
	return nil
}

// Pending returns every notification waiting to be published, in
// registration order.
func (r *Registry) Pending() []Pending {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Pending
	for i, n := range r.items {
		if n.pending {
			out = append(out, Pending{
				Handle:  Handle(i),
				Name:    n.name,
				Topic:   n.topic,
				Text:    n.text,
				version: n.version,
			})
		}
	}
	return out
}

// markSent clears the pending flag unless the notification was updated
// after p was taken.
func (r *Registry) markSent(p Pending) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.items[p.Handle]
	n.sentAt = r.now()
	if n.version == p.version {
		n.pending = false
	}
}

// Snapshot describes every notification in registration order.
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Info, 0, len(r.items))
	for _, n := range r.items {
		out = append(out, Info{
			Name:      n.name,
			Topic:     n.topic,
			Format:    n.format,
			Arity:     n.arity,
			Text:      n.text,
			Pending:   n.pending,
			UpdatedAt: n.updatedAt,
			SentAt:    n.sentAt,
		})
	}
	return out
}

func (r *Registry) itemLocked(h Handle) (*notification, error) {
	if h < 0 || int(h) >= len(r.items) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return r.items[h], nil
}

// countVerbs counts the arguments a fmt template consumes. Templates using
// '*' widths or explicit argument indexes are rejected.
func countVerbs(format string) (int, bool) {
	count := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		// flags, width, precision
		for i < len(format) && strings.IndexByte("+-# 0123456789.", format[i]) >= 0 {
			i++
		}
		if i >= len(format) {
			return count, false
		}
		switch c := format[i]; {
		case c == '%':
		case c == '*' || c == '[':
			return count, false
		default:
			count++
		}
	}
	return count, true
}
