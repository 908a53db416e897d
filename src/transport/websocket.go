package transport

import (
	"context"
	"sync"
	"time"

	"tick-stream/src/helpers"
	"tick-stream/src/interfaces"
	"tick-stream/src/logger"

	"github.com/gorilla/websocket"
)

const maxFrameSize = 1024 * 1024 // 1MB, ticker frames are tiny but relays batch

// -----------------------------------------------------------------------------
// WebSocketClient implements IConnectionClient over gorilla/websocket. One
// Dial is one connection attempt; retry policy lives in the stream client,
// not here.
// -----------------------------------------------------------------------------

type WebSocketClient struct {
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewWebSocketClient(log *logger.Logger) *WebSocketClient {
	return &WebSocketClient{Logger: log}
}

// -----------------------------------------------------------------------------

// Dial opens a websocket to the given URL. The context deadline bounds the
// whole handshake.
func (w *WebSocketClient) Dial(ctx context.Context, url string) (interfaces.IStreamConn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 45 * time.Second, // ctx deadline fires first in practice
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, helpers.NewTransportError("websocket dial failed", err)
	}

	conn.SetReadLimit(maxFrameSize)
	return &wsConn{conn: conn}, nil
}

// -----------------------------------------------------------------------------
// wsConn wraps one established connection. Close is safe to call from the
// heartbeat timeout callback and the teardown watcher concurrently.
// -----------------------------------------------------------------------------

type wsConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

// -----------------------------------------------------------------------------

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, message, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			return nil, helpers.NewTransportError("abnormal close", err)
		}
		return nil, helpers.NewTransportError("read failed", err)
	}
	return message, nil
}

// -----------------------------------------------------------------------------

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		// Polite close frame, then drop the socket.
		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// -----------------------------------------------------------------------------

// Compile-time interface checks
var (
	_ interfaces.IConnectionClient = (*WebSocketClient)(nil)
	_ interfaces.IStreamConn       = (*wsConn)(nil)
)
