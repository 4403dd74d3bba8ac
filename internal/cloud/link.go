package cloud

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/credentials"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-device/internal/property"
	"github.com/nerrad567/gray-logic-device/internal/rpc"
)

// DefaultQueueSize bounds the outbound queue when none is configured.
const DefaultQueueSize = 64

// Transport is the broker connection the link drives. *mqtt.Client
// implements it.
type Transport interface {
	Connect() error
	Close() error
	State() (mqtt.State, error)
	IsConnected() bool
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	PublishDefault(topic string, payload []byte) error
}

// Dialer builds a transport once the device identity is known.
type Dialer func(clientID, statusTopic string) Transport

// MQTTDialer returns a Dialer producing paho-backed clients.
func MQTTDialer(cfg config.MQTTConfig, logger mqtt.Logger) Dialer {
	return func(clientID, statusTopic string) Transport {
		c := mqtt.New(cfg, clientID, statusTopic)
		if logger != nil {
			c.SetLogger(logger)
		}
		return c
	}
}

// PropertyUpdateFunc applies a remote property write.
type PropertyUpdateFunc func(key, value string, isOwner bool) property.UpdateResult

// Dispatcher invokes RPC handlers. *rpc.Registry implements it.
type Dispatcher interface {
	DispatchPostAs(caller rpc.Caller, name, arg string) (rpc.StatusCode, error)
	DispatchGetAs(caller rpc.Caller, name, arg string) (rpc.Result, error)
}

// Options configures a Link.
type Options struct {
	TopicPrefix string
	Encoding    string
	QueueSize   int
	QoS         byte
}

type outbound struct {
	topic   string
	payload []byte
}

// Link is the device's connection to the cloud.
//
// Outbound messages are encoded on the caller's goroutine and handed to a
// bounded queue; a single sender goroutine publishes them in order. Emits
// never block: when the link is down or the queue is full the message is
// dropped and the caller is told so.
//
// Inbound property writes and RPC calls are handled on the transport's
// delivery goroutine. Their replies go through the same queue.
type Link struct {
	opts  Options
	codec Codec
	dial  Dialer
	now   func() time.Time

	mu        sync.RWMutex
	transport Transport
	topics    mqtt.Topics
	deviceID  string
	onUpdate  PropertyUpdateFunc
	rpc       Dispatcher
	onInbound func(InboundRecord)

	lastState mqtt.State

	queue     chan outbound
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	logger Logger
}

// New creates an unconfigured link.
func New(opts Options, dial Dialer) (*Link, error) {
	codec, err := NewCodec(opts.Encoding)
	if err != nil {
		return nil, err
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = "devices"
	}
	return &Link{
		opts:   opts,
		codec:  codec,
		dial:   dial,
		now:    time.Now,
		queue:  make(chan outbound, opts.QueueSize),
		done:   make(chan struct{}),
		logger: noopLogger{},
	}, nil
}

// OptionsFrom converts the YAML cloud section.
func OptionsFrom(c config.CloudConfig) Options {
	return Options{
		TopicPrefix: c.TopicPrefix,
		Encoding:    c.Encoding,
		QueueSize:   c.QueueSize,
		QoS:         byte(c.MQTT.QoS),
	}
}

// SetLogger sets the logger for the link.
func (l *Link) SetLogger(logger Logger) {
	l.logger = logger
}

// Configure binds the link to a device identity and registers the inbound
// subscriptions. It does not connect.
func (l *Link) Configure(id *credentials.Identity) error {
	if id == nil {
		return fmt.Errorf("%w: nil identity", ErrNotConfigured)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.transport != nil {
		return ErrAlreadyConfigured
	}

	deviceID := id.DeviceIDHex()
	topics := mqtt.Topics{Prefix: l.opts.TopicPrefix, DeviceID: deviceID}
	transport := l.dial(deviceID, topics.Status())

	filters := []string{topics.PropertySetFilter(), topics.RPCPostFilter(), topics.RPCGetFilter()}
	for _, f := range filters {
		if err := transport.Subscribe(f, l.opts.QoS, l.handleInbound); err != nil {
			return fmt.Errorf("subscribing %s: %w", f, err)
		}
	}

	l.transport = transport
	l.topics = topics
	l.deviceID = deviceID

	l.logger.Info("cloud link configured", "device_id", deviceID, "root", topics.Root(), "encoding", l.codec.Name())
	return nil
}

// Topics returns the device topic tree. Zero before Configure.
func (l *Link) Topics() mqtt.Topics {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.topics
}

// SetPropertyUpdateHandler installs the handler for remote property writes.
func (l *Link) SetPropertyUpdateHandler(fn PropertyUpdateFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onUpdate = fn
}

// SetRPCDispatcher installs the handler registry for remote calls.
func (l *Link) SetRPCDispatcher(d Dispatcher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rpc = d
}

// OnInbound installs fn to observe every handled inbound request. fn runs
// on the transport's delivery goroutine and must not block.
func (l *Link) OnInbound(fn func(InboundRecord)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onInbound = fn
}

// Connect starts the sender and requests a broker connection. It returns
// without waiting for the connection.
func (l *Link) Connect() error {
	l.mu.RLock()
	transport := l.transport
	l.mu.RUnlock()

	if transport == nil {
		return ErrNotConfigured
	}

	l.startOnce.Do(func() {
		l.wg.Add(1)
		go l.sendLoop()
	})

	if err := transport.Connect(); err != nil {
		return fmt.Errorf("requesting connection: %w", err)
	}
	l.logger.Info("cloud connection requested")
	return nil
}

// Loop observes connection progress and logs state changes. It is polled
// from the main loop and never blocks.
func (l *Link) Loop() {
	l.mu.RLock()
	transport := l.transport
	l.mu.RUnlock()
	if transport == nil {
		return
	}

	state, err := transport.State()
	if state == l.lastState {
		return
	}
	prev := l.lastState
	l.lastState = state

	switch state {
	case mqtt.StateConnected:
		l.logger.Info("cloud link up", "previous", prev.String())
	case mqtt.StateConnecting:
		if prev == mqtt.StateConnected {
			l.logger.Warn("cloud link lost, reconnecting", "error", err)
		}
	default:
		l.logger.Warn("cloud link down", "error", err)
	}
}

// IsConnected reports whether the broker connection is up.
func (l *Link) IsConnected() bool {
	l.mu.RLock()
	transport := l.transport
	l.mu.RUnlock()
	return transport != nil && transport.IsConnected()
}

// QueueLen returns the number of messages waiting to be sent.
func (l *Link) QueueLen() int {
	return len(l.queue)
}

// Close stops the sender after draining what it can and closes the
// transport.
func (l *Link) Close() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.done)
		l.wg.Wait()

		l.mu.RLock()
		transport := l.transport
		l.mu.RUnlock()
		if transport != nil {
			err = transport.Close()
		}
	})
	return err
}

// =============================================================================
// Outbound
// =============================================================================

// Publish queues an application message on the event topic. It reports
// whether the message was accepted.
func (l *Link) Publish(topic, message string) bool {
	err := l.emit(func(t mqtt.Topics, h Header) (string, any) {
		return t.Event(topic), EventMessage{Header: h, Topic: topic, Message: message}
	}, TypeEvent)
	if err != nil {
		l.logger.Debug("publish dropped", "topic", topic, "error", err)
		return false
	}
	return true
}

// EmitProperties queues one sync unit. Implements property.Sink.
func (l *Link) EmitProperties(samples []property.Sample) error {
	return l.emit(func(t mqtt.Topics, h Header) (string, any) {
		return t.Properties(), PropertiesMessage{Header: h, Properties: samples}
	}, TypeProperties)
}

// EmitNotification queues a rendered notification. Implements
// notification.Emitter.
func (l *Link) EmitNotification(name, topic, text string) error {
	return l.emit(func(t mqtt.Topics, h Header) (string, any) {
		return t.Notification(topic), NotificationMessage{Header: h, Name: name, Text: text}
	}, TypeNotification)
}

func (l *Link) emit(build func(mqtt.Topics, Header) (string, any), msgType string) error {
	l.mu.RLock()
	transport := l.transport
	topics := l.topics
	deviceID := l.deviceID
	l.mu.RUnlock()

	if transport == nil {
		return ErrNotConfigured
	}
	if !transport.IsConnected() {
		return ErrNotConnected
	}

	topic, msg := build(topics, newHeader(msgType, deviceID, l.now()))
	payload, err := l.codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", msgType, err)
	}
	return l.enqueue(outbound{topic: topic, payload: payload})
}

func (l *Link) enqueue(m outbound) error {
	select {
	case l.queue <- m:
		return nil
	default:
		l.logger.Warn("outbound queue full, dropping message", "topic", m.topic)
		return ErrQueueFull
	}
}

func (l *Link) sendLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.done:
			l.drain()
			return
		case m := <-l.queue:
			l.send(m)
		}
	}
}

func (l *Link) drain() {
	for {
		select {
		case m := <-l.queue:
			l.send(m)
		default:
			return
		}
	}
}

func (l *Link) send(m outbound) {
	l.mu.RLock()
	transport := l.transport
	l.mu.RUnlock()

	if err := transport.PublishDefault(m.topic, m.payload); err != nil {
		l.logger.Warn("cloud publish failed", "topic", m.topic, "error", err)
	}
}
