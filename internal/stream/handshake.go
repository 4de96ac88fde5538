package stream

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// handshakePath is the route suffix signed into the auth frame.
const handshakePath = "stream"

// newCorrelationID returns a fresh 32-character hex id.
func newCorrelationID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// handshake authenticates a freshly opened socket: it sends the signed
// auth frame and awaits the correlated reply under a bounded wait. A
// no-op when no credentials are configured; the connection is then
// immediately usable for public channels.
func (m *manager) handshake(cl Client) error {
	if !m.cfg.Credentials.Configured() {
		return nil
	}

	ts := time.Now().UnixMilli()
	sig, err := m.cfg.Credentials.SignRequest(ts, handshakePath)
	if err != nil {
		return fmt.Errorf("sign handshake: %w", err)
	}

	id := newCorrelationID()[:6]
	frame := authFrame{
		Op:  "auth",
		ID:  id,
		T:   ts,
		Key: m.cfg.Credentials.Key,
		Sig: sig,
	}

	w := m.pending.await("auth", id)

	data, err := json.Marshal(frame)
	if err != nil {
		m.pending.forget(w)
		return fmt.Errorf("encode handshake: %w", err)
	}
	if err := cl.Send(data); err != nil {
		m.pending.forget(w)
		return fmt.Errorf("send handshake: %w", err)
	}

	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.HandshakeTimeout)
	defer cancel()

	if _, err := w.wait(ctx, m.pending); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrHandshakeTimeout
		}
		return err
	}

	m.logger.Debug("handshake authenticated", "key", m.cfg.Credentials.Key)
	return nil
}
