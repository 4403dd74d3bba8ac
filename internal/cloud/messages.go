package cloud

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-device/internal/property"
)

// Message types carried in Header.Type.
const (
	TypeProperties   = "properties"
	TypeNotification = "notification"
	TypeEvent        = "event"
	TypeReply        = "reply"
)

// Header is common to every outbound message.
type Header struct {
	ID        string    `json:"id" cbor:"id"`
	Type      string    `json:"type" cbor:"type"`
	DeviceID  string    `json:"device_id" cbor:"device_id"`
	Timestamp time.Time `json:"timestamp" cbor:"ts"`
}

func newHeader(msgType, deviceID string, now time.Time) Header {
	return Header{
		ID:        uuid.NewString(),
		Type:      msgType,
		DeviceID:  deviceID,
		Timestamp: now.UTC(),
	}
}

// PropertiesMessage carries one sync unit.
type PropertiesMessage struct {
	Header
	Properties []property.Sample `json:"properties" cbor:"properties"`
}

// NotificationMessage carries a rendered notification.
type NotificationMessage struct {
	Header
	Name string `json:"name" cbor:"name"`
	Text string `json:"text" cbor:"text"`
}

// EventMessage carries an application publish.
type EventMessage struct {
	Header
	Topic   string `json:"topic" cbor:"topic"`
	Message string `json:"message" cbor:"message"`
}

// Request is an inbound property write or RPC call.
type Request struct {
	ID    string `json:"id" cbor:"id"`
	Value string `json:"value" cbor:"value"`
	Owner bool   `json:"owner" cbor:"owner"`
}

// ReplyMessage answers a Request. Result is set for GET calls; JSON
// results are carried as their text.
type ReplyMessage struct {
	Header
	RequestID string `json:"request_id" cbor:"request_id"`
	Status    int    `json:"status" cbor:"status"`
	Kind      string `json:"kind,omitempty" cbor:"kind,omitempty"`
	Result    string `json:"result,omitempty" cbor:"result,omitempty"`
	Error     string `json:"error,omitempty" cbor:"error,omitempty"`
}
