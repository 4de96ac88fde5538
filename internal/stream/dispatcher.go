package stream

import (
	"encoding/json"
	"log/slog"
)

// dispatcher decodes inbound frames and routes each one to exactly one
// destination, first match wins:
//
//  1. keepalive ("ping"): answered immediately, not forwarded
//  2. handshake replies ("auth"): settle the auth waiter
//  3. frames with a correlation id matching an open pending entry for
//     the declared topic settle it. The frame is consumed and never
//     also fanned out. "depth-snapshot" replies carry no id and
//     correlate by symbol instead.
//  4. frames whose routing key matches a live subscription are
//     delivered sequentially, in registration order
//  5. anything else is logged as unhandled
type dispatcher struct {
	pending  *pendingTable
	registry *registry
	logger   *slog.Logger

	// keepalive answers an inbound ping on the active connection.
	keepalive func()
}

func newDispatcher(pending *pendingTable, registry *registry, keepalive func(), logger *slog.Logger) *dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &dispatcher{
		pending:   pending,
		registry:  registry,
		keepalive: keepalive,
		logger:    logger,
	}
}

// frameFields is one decoded inbound frame, keyed by top-level field.
type frameFields map[string]json.RawMessage

// stringField decodes a top-level string field, or "" when absent or not
// a string.
func (f frameFields) stringField(name string) string {
	raw, ok := f[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// extractTopic returns the frame topic. Precedence is fixed: "m" first,
// then "message"; never whichever happens to be present.
func extractTopic(f frameFields) string {
	if topic := f.stringField("m"); topic != "" {
		return topic
	}
	return f.stringField("message")
}

// extractRoutingKey returns the subscription routing key. Precedence is
// fixed: "symbol", then "s", then "accountId".
func extractRoutingKey(f frameFields) string {
	if key := f.stringField("symbol"); key != "" {
		return key
	}
	if key := f.stringField("s"); key != "" {
		return key
	}
	return f.stringField("accountId")
}

// extractPayload returns the frame payload. Precedence is fixed: "data",
// then "info"; bar and summary frames carry their payload at the top
// level, so the whole frame is the payload there.
func extractPayload(f frameFields, topic string, raw []byte) json.RawMessage {
	if data, ok := f["data"]; ok {
		return data
	}
	if info, ok := f["info"]; ok {
		return info
	}
	if topic == "bar" || topic == "summary" {
		return raw
	}
	return nil
}

// errorReason returns the server-provided failure reason of an error
// reply, or "" for a success reply. Precedence: "reason", then "err".
func errorReason(f frameFields) string {
	if reason := f.stringField("reason"); reason != "" {
		return reason
	}
	return f.stringField("err")
}

// dispatch routes one raw inbound frame. Decode failures drop the frame;
// they are never fatal to the connection.
func (d *dispatcher) dispatch(raw []byte) {
	var fields frameFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		d.logger.Warn("dropping undecodable frame", "error", err)
		return
	}

	topic := extractTopic(fields)
	if topic == "" {
		d.logger.Warn("dropping frame without topic", "frame", string(raw))
		return
	}

	switch topic {
	case "ping":
		d.keepalive()
		return
	case "pong", "connected":
		d.logger.Debug("control frame", "topic", topic)
		return
	case "sub", "unsub":
		// Best-effort subscribe acks; no tracking.
		if reason := errorReason(fields); reason != "" {
			d.logger.Warn("subscription rejected", "ch", fields.stringField("ch"), "reason", reason)
		} else {
			d.logger.Debug("subscription acknowledged", "ch", fields.stringField("ch"))
		}
		return
	case "auth":
		d.dispatchAuth(fields)
		return
	}

	if d.dispatchReply(fields, topic, raw) {
		return
	}

	d.fanOut(fields, topic, raw)
}

// dispatchAuth settles the handshake waiter registered under ("auth", id).
func (d *dispatcher) dispatchAuth(fields frameFields) {
	id := fields.stringField("id")

	var code int
	if raw, ok := fields["code"]; ok {
		if err := json.Unmarshal(raw, &code); err != nil {
			d.logger.Warn("auth reply with malformed code", "id", id)
			return
		}
	}

	if code != 0 {
		msg := errorReason(fields)
		if msg == "" {
			msg = fields.stringField("message")
		}
		if !d.pending.fail("auth", id, &AuthError{Code: code, Message: msg}) {
			d.logger.Warn("auth rejection with no waiter", "id", id, "code", code)
		}
		return
	}

	if !d.pending.resolve("auth", id, nil) {
		d.logger.Warn("auth reply with no waiter", "id", id)
	}
}

// dispatchReply settles an open pending entry matching the frame, if
// any. A matched frame is consumed.
func (d *dispatcher) dispatchReply(fields frameFields, topic string, raw []byte) bool {
	id := fields.stringField("id")
	if id == "" && topic == "depth-snapshot" {
		// Snapshot replies echo the symbol, not the request id.
		id = fields.stringField("symbol")
	}
	if id == "" {
		return false
	}

	if reason := errorReason(fields); reason != "" {
		return d.pending.fail(topic, id, &CorrelationError{Action: topic, ID: id, Reason: reason})
	}

	return d.pending.resolve(topic, id, extractPayload(fields, topic, raw))
}

// fanOut delivers a push frame to every handler registered for its
// (channel, routing key), in registration order. A handler error is
// logged and delivery continues.
func (d *dispatcher) fanOut(fields frameFields, topic string, raw []byte) {
	key := extractRoutingKey(fields)
	if key == "" {
		d.logger.Warn("unhandled frame: no routing key", "topic", topic)
		return
	}

	payload := extractPayload(fields, topic, raw)
	if payload == nil {
		d.logger.Warn("unhandled frame: no payload", "topic", topic, "key", key)
		return
	}

	handlers := d.registry.handlers(topic, key)
	if len(handlers) == 0 {
		d.logger.Debug("unhandled frame: no subscribers", "topic", topic, "key", key)
		return
	}

	for _, h := range handlers {
		if err := h(topic, key, payload); err != nil {
			d.logger.Error("subscriber callback failed",
				"channel", topic,
				"id", key,
				"error", err,
			)
		}
	}
}
