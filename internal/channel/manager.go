package channel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/protocol"
)

const writeWait = 10 * time.Second

// Manager owns the single bidirectional channel of a call: the websocket
// connection, a write lock serializing outbound frames, and the inbound
// read loop. One Manager serves exactly one call.
type Manager struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// Dial opens the channel to the call endpoint at url.
func Dial(ctx context.Context, url string) (*Manager, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	slog.Info("channel open", "url", url)
	return &Manager{conn: conn}, nil
}

// Run reads inbound frames until the channel closes, passing each text
// frame to dispatch. Binary inbound frames are not part of the protocol and
// are dropped. Run returns the error that ended the read loop, or nil on a
// normal close. Exactly one Run per Manager.
func (m *Manager) Run(dispatch func(data []byte)) error {
	for {
		msgType, data, err := m.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || m.isClosed() {
				return nil
			}
			return err
		}
		if msgType != websocket.TextMessage {
			slog.Debug("ignoring non-text inbound frame", "type", msgType, "bytes", len(data))
			continue
		}
		dispatch(data)
	}
}

// SendControl sends one JSON control frame.
func (m *Manager) SendControl(msgType string) error {
	data, err := json.Marshal(protocol.ControlFrame{Type: msgType})
	if err != nil {
		return err
	}
	return m.write(websocket.TextMessage, data)
}

// SendAudio sends one raw binary audio frame.
func (m *Manager) SendAudio(frame []byte) error {
	return m.write(websocket.BinaryMessage, frame)
}

func (m *Manager) write(msgType int, data []byte) error {
	if m.isClosed() {
		return errors.New("channel closed")
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return m.conn.WriteMessage(msgType, data)
}

// Close sends a close frame and tears down the connection. Idempotent.
func (m *Manager) Close() error {
	m.closeMu.Lock()
	if m.closed {
		m.closeMu.Unlock()
		return nil
	}
	m.closed = true
	m.closeMu.Unlock()

	m.writeMu.Lock()
	m.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := m.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	m.writeMu.Unlock()
	if err != nil {
		slog.Debug("close frame send failed", "error", err)
	}
	return m.conn.Close()
}

func (m *Manager) isClosed() bool {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	return m.closed
}
