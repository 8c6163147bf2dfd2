package rpc_test

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

	"github.com/polkaclient/polkaclient/pkg/rpc"
	"github.com/polkaclient/polkaclient/pkg/scale"
)

type wsRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      uint64            `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// newWSNode starts a websocket node that answers every request through
// respond. Returned frames are written in order.
func newWSNode(t *testing.T, respond func(req wsRequest) [][]byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var writeMu sync.Mutex
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req wsRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return
			}
			writeMu.Lock()
			for _, frame := range respond(req) {
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					writeMu.Unlock()
					return
				}
			}
			writeMu.Unlock()
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func resultFrame(id uint64, result any) []byte {
	data, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": id, "result": result})
	return data
}

func wsClient() *rpc.Client {
	cfg := rpc.DefaultConfig()
	cfg.CallTimeout = 2 * time.Second
	cfg.PingInterval = 100 * time.Millisecond
	return rpc.NewClient(rpc.WithConfig(cfg))
}

func TestWebsocket_Call(t *testing.T) {
	t.Parallel()

	server := newWSNode(t, func(req wsRequest) [][]byte {
		assert.Equal(t, rpc.Version, req.JSONRPC)
		return [][]byte{resultFrame(req.ID, "response_"+req.Method)}
	})

	client := wsClient()
	require.NoError(t, client.Connect(context.Background(), wsURL(server)))
	defer client.Disconnect()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out string
			assert.NoError(t, client.CallInto(context.Background(), &out, "system_chain"))
			assert.Equal(t, "response_system_chain", out)
		}()
	}
	wg.Wait()
}

func TestWebsocket_Subscription(t *testing.T) {
	t.Parallel()

	server := newWSNode(t, func(req wsRequest) [][]byte {
		if req.Method != "chain_subscribeNewHeads" {
			return [][]byte{resultFrame(req.ID, true)}
		}
		note, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"method":  "chain_newHead",
			"params":  map[string]any{"subscription": "abc", "result": "0x2a000000"},
		})
		return [][]byte{resultFrame(req.ID, "abc"), note}
	})

	client := wsClient()
	require.NoError(t, client.Connect(context.Background(), wsURL(server)))
	defer client.Disconnect()

	got := make(chan rpc.Notification, 1)
	id, err := client.Subscribe(context.Background(), rpc.Topic{
		Kind:              rpc.TopicBlockNumber,
		SubscribeMethod:   "chain_subscribeNewHeads",
		UnsubscribeMethod: "chain_unsubscribeNewHeads",
		Descriptor:        scale.U32,
	}, collect(got))
	require.NoError(t, err)
	assert.Equal(t, rpc.SubscriptionID("abc"), id)
	assert.Equal(t, uint32(42), receive(t, got).Value)

	require.NoError(t, client.Unsubscribe(context.Background(), id))
}

func TestWebsocket_ConnectFailure(t *testing.T) {
	t.Parallel()

	client := wsClient()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := client.Connect(ctx, "ws://127.0.0.1:1/none")
	var connErr *rpc.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, rpc.ErrDialingWebsocket)
	assert.Equal(t, rpc.StateDisconnected, client.State())
}

func TestWebsocket_ServerClose(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	hangup := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		<-hangup
		_ = conn.Close()
	}))
	defer server.Close()

	client := wsClient()
	require.NoError(t, client.Connect(context.Background(), wsURL(server)))
	defer client.Disconnect()
	assert.True(t, client.IsConnected())

	close(hangup)
	require.Eventually(t, func() bool {
		return client.State() == rpc.StateDisconnected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebsocketTransport_SendAfterClose(t *testing.T) {
	t.Parallel()

	server := newWSNode(t, func(req wsRequest) [][]byte { return nil })

	tr := rpc.NewWebsocketTransport(rpc.WebsocketConfig{HandshakeTimeout: time.Second}, nil)
	require.NoError(t, tr.Connect(context.Background(), wsURL(server)))
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	assert.ErrorIs(t, tr.Send(context.Background(), []byte("{}")), rpc.ErrConnectionClosed)
	_, err := tr.Receive(context.Background())
	assert.ErrorIs(t, err, rpc.ErrConnectionClosed)
}
