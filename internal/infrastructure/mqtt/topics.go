package mqtt

import (
	"fmt"
	"strings"
)

// Topic segments below a device root.
const (
	segmentStatus       = "status"
	segmentProperty     = "property"
	segmentNotification = "notification"
	segmentEvent        = "event"
	segmentRPC          = "rpc"
	segmentReply        = "reply"
	segmentSet          = "set"
	segmentPost         = "post"
	segmentGet          = "get"
)

// InboundKind classifies a message received on a device topic.
type InboundKind int

const (
	InboundUnknown InboundKind = iota
	InboundPropertySet
	InboundRPCPost
	InboundRPCGet
)

func (k InboundKind) String() string {
	switch k {
	case InboundPropertySet:
		return "property.set"
	case InboundRPCPost:
		return "rpc.post"
	case InboundRPCGet:
		return "rpc.get"
	default:
		return "unknown"
	}
}

// Topics builds the device's topic tree.
//
// Every topic lives below {prefix}/{device_id}:
//
//	topics := mqtt.Topics{Prefix: "devices", DeviceID: "0102030405060708090a0b0c"}
//	topics.PropertySet("cloudNumber")
//	// Returns: "devices/0102030405060708090a0b0c/property/set/cloudNumber"
type Topics struct {
	Prefix   string
	DeviceID string
}

// Root returns {prefix}/{device_id}.
func (t Topics) Root() string {
	return fmt.Sprintf("%s/%s", t.Prefix, t.DeviceID)
}

// =============================================================================
// Outbound
// =============================================================================

// Status returns the retained online/offline topic (also the LWT topic).
//
// Example: devices/0102.../status
func (t Topics) Status() string {
	return t.Root() + "/" + segmentStatus
}

// Properties returns the topic property samples are published on.
//
// Example: devices/0102.../property
func (t Topics) Properties() string {
	return t.Root() + "/" + segmentProperty
}

// Notification returns the topic for a notification's rendered text.
//
// Example: devices/0102.../notification/counter
func (t Topics) Notification(topic string) string {
	return fmt.Sprintf("%s/%s/%s", t.Root(), segmentNotification, topic)
}

// Event returns the topic for an application publish (e.g. the periodic status message).
//
// Example: devices/0102.../event/status
func (t Topics) Event(topic string) string {
	return fmt.Sprintf("%s/%s/%s", t.Root(), segmentEvent, topic)
}

// Reply returns the topic a request's result is published on.
//
// Example: devices/0102.../reply/7f2c...
func (t Topics) Reply(requestID string) string {
	return fmt.Sprintf("%s/%s/%s", t.Root(), segmentReply, requestID)
}

// =============================================================================
// Inbound
// =============================================================================

// PropertySet returns the topic the cloud writes a property on.
func (t Topics) PropertySet(key string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.Root(), segmentProperty, segmentSet, key)
}

// RPCPost returns the topic for invoking a POST handler.
func (t Topics) RPCPost(name string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.Root(), segmentRPC, segmentPost, name)
}

// RPCGet returns the topic for invoking a GET handler.
func (t Topics) RPCGet(name string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.Root(), segmentRPC, segmentGet, name)
}

// PropertySetFilter matches every property write for this device.
func (t Topics) PropertySetFilter() string {
	return t.PropertySet("+")
}

// RPCPostFilter matches every POST invocation for this device.
func (t Topics) RPCPostFilter() string {
	return t.RPCPost("+")
}

// RPCGetFilter matches every GET invocation for this device.
func (t Topics) RPCGetFilter() string {
	return t.RPCGet("+")
}

// ParseInbound classifies an inbound topic and extracts the property key or
// handler name. Topics outside this device's tree yield InboundUnknown.
func (t Topics) ParseInbound(topic string) (InboundKind, string) {
	rest, ok := strings.CutPrefix(topic, t.Root()+"/")
	if !ok {
		return InboundUnknown, ""
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] == "" {
		return InboundUnknown, ""
	}

	switch {
	case parts[0] == segmentProperty && parts[1] == segmentSet:
		return InboundPropertySet, parts[2]
	case parts[0] == segmentRPC && parts[1] == segmentPost:
		return InboundRPCPost, parts[2]
	case parts[0] == segmentRPC && parts[1] == segmentGet:
		return InboundRPCGet, parts[2]
	default:
		return InboundUnknown, ""
	}
}
