package cloud

import (
	"fmt"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-device/internal/property"
	"github.com/nerrad567/gray-logic-device/internal/rpc"
)

// InboundRecord describes a handled inbound request.
type InboundRecord struct {
	Kind      mqtt.InboundKind
	Name      string
	RequestID string
	Value     string
	Owner     bool
	Status    int
	Error     string
}

// handleInbound routes a property write or RPC call. It runs on the
// transport's delivery goroutine.
func (l *Link) handleInbound(topic string, payload []byte) error {
	l.mu.RLock()
	topics := l.topics
	onUpdate := l.onUpdate
	dispatcher := l.rpc
	observe := l.onInbound
	l.mu.RUnlock()

	kind, name := topics.ParseInbound(topic)
	if kind == mqtt.InboundUnknown {
		return fmt.Errorf("unexpected topic %s", topic)
	}

	var req Request
	if err := l.codec.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, topic, err)
	}

	var reply ReplyMessage
	switch kind {
	case mqtt.InboundPropertySet:
		reply = l.handlePropertySet(onUpdate, name, req)
	case mqtt.InboundRPCPost:
		reply = l.handlePost(dispatcher, name, req)
	case mqtt.InboundRPCGet:
		reply = l.handleGet(dispatcher, name, req)
	}

	if observe != nil {
		observe(InboundRecord{
			Kind:      kind,
			Name:      name,
			RequestID: req.ID,
			Value:     req.Value,
			Owner:     req.Owner,
			Status:    reply.Status,
			Error:     reply.Error,
		})
	}

	return l.reply(req.ID, reply)
}

func (l *Link) handlePropertySet(fn PropertyUpdateFunc, key string, req Request) ReplyMessage {
	if fn == nil {
		return ReplyMessage{Status: int(property.NotFound), Error: "no property handler"}
	}
	res := fn(key, req.Value, req.Owner)
	l.logger.Debug("remote property write", "key", key, "result", res.String())
	return ReplyMessage{Status: int(res)}
}

func (l *Link) handlePost(d Dispatcher, name string, req Request) ReplyMessage {
	if d == nil {
		return ReplyMessage{Status: int(rpc.StatusUnknownName), Error: "no rpc handlers"}
	}
	code, err := d.DispatchPostAs(rpc.Caller{IsOwner: req.Owner}, name, req.Value)
	if err != nil {
		l.logger.Warn("rpc post failed", "name", name, "error", err)
		return ReplyMessage{Status: int(code), Error: err.Error()}
	}
	return ReplyMessage{Status: int(code)}
}

func (l *Link) handleGet(d Dispatcher, name string, req Request) ReplyMessage {
	if d == nil {
		return ReplyMessage{Status: int(rpc.StatusUnknownName), Error: "no rpc handlers"}
	}
	res, err := d.DispatchGetAs(rpc.Caller{IsOwner: req.Owner}, name, req.Value)
	if err != nil {
		l.logger.Warn("rpc get failed", "name", name, "error", err)
		return ReplyMessage{Status: int(rpc.Status(err)), Error: err.Error()}
	}
	return ReplyMessage{
		Status: int(rpc.StatusOK),
		Kind:   res.Kind.String(),
		Result: string(res.Body),
	}
}

func (l *Link) reply(requestID string, msg ReplyMessage) error {
	if requestID == "" {
		l.logger.Debug("request without id, no reply sent", "status", msg.Status)
		return nil
	}

	l.mu.RLock()
	topics := l.topics
	deviceID := l.deviceID
	l.mu.RUnlock()

	msg.Header = newHeader(TypeReply, deviceID, l.now())
	msg.RequestID = requestID

	payload, err := l.codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding reply: %w", err)
	}
	return l.enqueue(outbound{topic: topics.Reply(requestID), payload: payload})
}
