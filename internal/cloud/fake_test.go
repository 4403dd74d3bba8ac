package cloud

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/credentials"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/mqtt"
)

type sentMessage struct {
	topic   string
	payload []byte
}

// fakeTransport records subscriptions and publishes.
type fakeTransport struct {
	mu         sync.Mutex
	state      mqtt.State
	stateErr   error
	handlers   map[string]mqtt.MessageHandler
	connects   int
	closed     bool
	publishErr error

	sent chan sentMessage
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		handlers: make(map[string]mqtt.MessageHandler),
		sent:     make(chan sentMessage, 64),
	}
}

func (f *fakeTransport) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.state = mqtt.StateConnecting
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.state = mqtt.StateDisconnected
	return nil
}

func (f *fakeTransport) State() (mqtt.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.stateErr
}

func (f *fakeTransport) IsConnected() bool {
	s, _ := f.State()
	return s == mqtt.StateConnected
}

func (f *fakeTransport) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) PublishDefault(topic string, payload []byte) error {
	f.mu.Lock()
	err := f.publishErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.sent <- sentMessage{topic: topic, payload: bytes.Clone(payload)}
	return nil
}

func (f *fakeTransport) setState(s mqtt.State, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
	f.stateErr = err
}

// deliver hands payload to the handler whose single-level wildcard filter
// matches topic.
func (f *fakeTransport) deliver(t *testing.T, topic string, payload []byte) error {
	t.Helper()
	f.mu.Lock()
	var handler mqtt.MessageHandler
	for filter, h := range f.handlers {
		if strings.TrimSuffix(filter, "+") == topic[:strings.LastIndex(topic, "/")+1] {
			handler = h
		}
	}
	f.mu.Unlock()
	if handler == nil {
		t.Fatalf("no subscription matches %s", topic)
	}
	return handler(topic, payload)
}

func (f *fakeTransport) next(t *testing.T) sentMessage {
	t.Helper()
	select {
	case m := <-f.sent:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
		return sentMessage{}
	}
}

func (f *fakeTransport) expectNone(t *testing.T) {
	t.Helper()
	select {
	case m := <-f.sent:
		t.Fatalf("unexpected publish on %s", m.topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func testIdentity(t *testing.T) *credentials.Identity {
	t.Helper()
	id, err := credentials.NewIdentity(
		[]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c},
		bytes.Repeat([]byte{0xab}, credentials.PrivateKeyLength),
	)
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}
	return id
}

// newConnectedLink returns a configured link whose transport reports
// connected, with the sender running.
func newConnectedLink(t *testing.T, opts Options) (*Link, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	var gotClientID, gotStatus string
	link, err := New(opts, func(clientID, statusTopic string) Transport {
		gotClientID, gotStatus = clientID, statusTopic
		return ft
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := link.Configure(testIdentity(t)); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if gotClientID != "0102030405060708090a0b0c" {
		t.Errorf("dial clientID = %q", gotClientID)
	}
	if gotStatus != link.Topics().Status() {
		t.Errorf("dial statusTopic = %q, want %q", gotStatus, link.Topics().Status())
	}
	if err := link.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	ft.setState(mqtt.StateConnected, nil)
	t.Cleanup(func() { link.Close() }) //nolint:errcheck // Test cleanup
	return link, ft
}
