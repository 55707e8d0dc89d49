package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"tx-composer/lib/httputils"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc" validate:"required,eq=2.0"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

var validate = validator.New()

type transport interface {
	roundTrip(ctx context.Context, req request) (*response, error)
	close() error
}

type httpTransport struct {
	url string
}

func (h *httpTransport) roundTrip(ctx context.Context, req request) (*response, error) {
	r, err := httputils.MakeJSONRequest(ctx, h.url, req, nil)
	if err != nil {
		return nil, err
	}
	return httputils.SendRequest[response](r, validate)
}

func (h *httpTransport) close() error {
	return nil
}

// wsTransport runs one request at a time over a single connection.
// Messages with another id, such as subscription notifications, are
// skipped.
type wsTransport struct {
	mtx  sync.Mutex
	conn *websocket.Conn
}

func dialWebsocket(ctx context.Context, url string) (*wsTransport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return &wsTransport{conn: conn}, nil
}

func (w *wsTransport) roundTrip(ctx context.Context, req request) (*response, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := w.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	if err := w.conn.WriteJSON(req); err != nil {
		return nil, err
	}

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		res := response{}
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, err
		}
		if res.ID != req.ID {
			continue
		}
		if err := validate.Struct(res); err != nil {
			return nil, err
		}
		return &res, nil
	}
}

func (w *wsTransport) close() error {
	return w.conn.Close()
}
