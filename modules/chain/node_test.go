package chain_test

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

var (
	genesisHash = [32]byte{0xe1, 0x43, 0xf2, 0x38}
	bestHash    = [32]byte{0xbe, 0x57}
	txHash      = [32]byte{0x7a}
)

const alice = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

func hexOf(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

type rpcRequest struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// fakeNode answers the handful of calls the client makes.
type fakeNode struct {
	mtx        sync.Mutex
	fail       bool
	properties map[string]any
	nonce      uint64
	submitted  []string
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		properties: map[string]any{"ss58Format": 42, "tokenDecimals": 12, "tokenSymbol": "WND"},
		nonce:      5,
	}
}

func (f *fakeNode) result(req rpcRequest) (any, bool) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	if f.fail {
		return nil, false
	}
	switch req.Method {
	case "chain_getBlockHash":
		if len(req.Params) == 1 && req.Params[0] == float64(0) {
			return hexOf(genesisHash[:]), true
		}
		return hexOf(bestHash[:]), true
	case "chain_getHeader":
		if len(req.Params) != 1 || req.Params[0] != hexOf(bestHash[:]) {
			return nil, false
		}
		return map[string]any{"number": "0x2a", "parentHash": hexOf(genesisHash[:])}, true
	case "state_getRuntimeVersion":
		return map[string]any{"specName": "westend", "specVersion": 1017001, "transactionVersion": 27}, true
	case "system_properties":
		return f.properties, true
	case "state_getMetadata":
		return "0x6d657461", true
	case "system_accountNextIndex":
		if len(req.Params) != 1 || req.Params[0] != alice {
			return nil, false
		}
		return f.nonce, true
	case "author_submitExtrinsic":
		f.submitted = append(f.submitted, req.Params[0].(string))
		f.nonce++
		return hexOf(txHash[:]), true
	}
	return nil, false
}

func (f *fakeNode) answer(req rpcRequest) map[string]any {
	res := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if v, ok := f.result(req); ok {
		res["result"] = v
	} else {
		res["error"] = map[string]any{"code": -32601, "message": "Method not found"}
	}
	return res
}

func (f *fakeNode) Submitted() []string {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]string{}, f.submitted...)
}

func (f *fakeNode) serveHTTP(w http.ResponseWriter, r *http.Request) {
	req := rpcRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(f.answer(req))
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (f *fakeNode) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		req := rpcRequest{}
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		// a subscription notification arrives before every answer
		notification := map[string]any{"jsonrpc": "2.0", "method": "chain_newHead", "params": map[string]any{}}
		if err := conn.WriteJSON(notification); err != nil {
			return
		}
		if err := conn.WriteJSON(f.answer(req)); err != nil {
			return
		}
	}
}

func httpNode(t *testing.T, f *fakeNode) string {
	srv := httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(srv.Close)
	return srv.URL
}

func websocketNode(t *testing.T, f *fakeNode) string {
	srv := httptest.NewServer(http.HandlerFunc(f.serveWebsocket))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}
