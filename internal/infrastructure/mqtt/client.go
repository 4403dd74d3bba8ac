package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
)

// State is the connection state as last reported by paho callbacks.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Client wraps paho.mqtt.golang for the device's cloud link.
//
// Unlike a blocking dial, Connect only starts the connection attempt; paho
// keeps retrying in the background and the caller observes progress through
// State. Subscriptions may be registered before the first connection and are
// (re)applied on every connect.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client      pahomqtt.Client
	qos         byte
	clientID    string
	statusTopic string

	subscriptions map[string]subscription
	subMu         sync.RWMutex

	state   State
	lastErr error
	stateMu sync.RWMutex

	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers run on paho's delivery goroutine and should return promptly.
// A returned error is logged and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

// New builds a client for the given broker settings without connecting.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//   - clientID: Broker client id (the device id hex unless cfg overrides it)
//   - statusTopic: Retained topic carrying online/offline status and the LWT
//
// Returns:
//   - *Client: Client ready for Subscribe and Connect
func New(cfg config.MQTTConfig, clientID, statusTopic string) *Client {
	if cfg.Broker.ClientID != "" {
		clientID = cfg.Broker.ClientID
	}

	c := &Client{
		qos:           byte(cfg.QoS),
		clientID:      clientID,
		statusTopic:   statusTopic,
		subscriptions: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg, clientID)
	configureLWT(opts, statusTopic, clientID)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.setState(StateConnecting, nil)
	})

	c.client = pahomqtt.NewClient(opts)
	return c
}

// newWithPaho wires an existing paho client; used by tests.
func newWithPaho(pc pahomqtt.Client, qos byte, clientID, statusTopic string) *Client {
	return &Client{
		client:        pc,
		qos:           qos,
		clientID:      clientID,
		statusTopic:   statusTopic,
		subscriptions: make(map[string]subscription),
	}
}

// Connect starts connecting to the broker and returns immediately.
//
// paho retries with backoff until it succeeds or Close is called, so the
// only synchronous error is calling Connect on a client that is already
// connecting or connected.
func (c *Client) Connect() error {
	c.stateMu.Lock()
	if c.state != StateDisconnected {
		c.stateMu.Unlock()
		return ErrAlreadyConnecting
	}
	c.state = StateConnecting
	c.stateMu.Unlock()

	token := c.client.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			c.setState(StateDisconnected, fmt.Errorf("%w: %w", ErrConnectionFailed, err))
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT connect attempt failed", "error", err)
			}
		}
	}()
	return nil
}

func (c *Client) handleConnect() {
	c.setState(StateConnected, nil)
	c.restoreSubscriptions()
	c.client.Publish(c.statusTopic, c.qos, true, buildStatusPayload(c.clientID, "online", ""))

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

func (c *Client) handleDisconnect(err error) {
	// paho auto-reconnects after a lost connection.
	c.setState(StateConnecting, err)

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

func (c *Client) setState(s State, err error) {
	c.stateMu.Lock()
	c.state = s
	if err != nil {
		c.lastErr = err
	}
	c.stateMu.Unlock()
}

func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// Close publishes a graceful offline status and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(c.statusTopic, c.qos, true,
			buildStatusPayload(c.clientID, "offline", "graceful_shutdown"))
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setState(StateDisconnected, nil)
	return nil
}

// HealthCheck reports ErrNotConnected unless the broker session is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// State returns the connection state and the most recent connection error.
func (c *Client) State() (State, error) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state, c.lastErr
}

// IsConnected returns true when the broker session is established.
func (c *Client) IsConnected() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state == StateConnected && c.client.IsConnected()
}

// ClientID returns the broker client id in use.
func (c *Client) ClientID() string {
	return c.clientID
}

// SetOnConnect sets a callback invoked on every (re)connect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback invoked when the connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler adds panic recovery and error logging to a MessageHandler.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
