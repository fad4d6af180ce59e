package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// echoServer records inbound frames and can push server frames back.
type echoServer struct {
	mu       sync.Mutex
	text     []string
	binary   [][]byte
	conn     *websocket.Conn
	accepted chan struct{}
}

func newEchoServer() *echoServer {
	return &echoServer{accepted: make(chan struct{})}
}

func (s *echoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	close(s.accepted)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.mu.Lock()
		switch msgType {
		case websocket.TextMessage:
			s.text = append(s.text, string(data))
		case websocket.BinaryMessage:
			s.binary = append(s.binary, data)
		}
		s.mu.Unlock()
	}
}

func (s *echoServer) push(t *testing.T, msgType int, data []byte) {
	t.Helper()
	<-s.accepted
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NoError(t, s.conn.WriteMessage(msgType, data))
}

func (s *echoServer) received() ([]string, [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := make([]string, len(s.text))
	copy(text, s.text)
	binary := make([][]byte, len(s.binary))
	copy(binary, s.binary)
	return text, binary
}

func dialTestServer(t *testing.T, srv *echoServer) *Manager {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	m, err := Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestSendControlAndAudio(t *testing.T) {
	srv := newEchoServer()
	m := dialTestServer(t, srv)

	require.NoError(t, m.SendControl("start"))
	require.NoError(t, m.SendAudio([]byte{0x01, 0x02, 0x03}))
	require.NoError(t, m.SendControl("stop"))

	require.Eventually(t, func() bool {
		text, binary := srv.received()
		return len(text) == 2 && len(binary) == 1
	}, time.Second, 5*time.Millisecond)

	text, binary := srv.received()
	var frame struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal([]byte(text[0]), &frame))
	assert.Equal(t, "start", frame.Type)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, binary[0])
}

func TestRunDispatchesTextFramesOnly(t *testing.T) {
	srv := newEchoServer()
	m := dialTestServer(t, srv)

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- m.Run(func(data []byte) {
			mu.Lock()
			got = append(got, string(data))
			mu.Unlock()
		})
	}()

	srv.push(t, websocket.TextMessage, []byte(`{"type":"session_id","session_id":"s1"}`))
	srv.push(t, websocket.BinaryMessage, []byte{0xff, 0xfe})
	srv.push(t, websocket.TextMessage, []byte(`{"type":"tts_done"}`))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Contains(t, got[0], "session_id")
	assert.Contains(t, got[1], "tts_done")
	mu.Unlock()

	require.NoError(t, m.Close())
	select {
	case err := <-done:
		assert.NoError(t, err, "local close ends the read loop without error")
	case <-time.After(time.Second):
		t.Fatal("read loop did not exit after Close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	srv := newEchoServer()
	m := dialTestServer(t, srv)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Error(t, m.SendControl("start"), "writes fail after close")
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := Dial(ctx, "ws://127.0.0.1:1/ws")
	require.Error(t, err)
}
