package lightning

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"summard/internal/providers"
	"summard/internal/structures"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// local mocks to avoid import cycle with testutil

type nopLogger struct{}

func (nopLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (nopLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (nopLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (nopLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (nopLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (nopLogger) Close()                                                  {}

type rpcMetrics struct {
	providers.MetricsProviderInterface
	mu     sync.Mutex
	calls  map[string]int
	errors map[string]int
}

func (m *rpcMetrics) ObserveRPC(method string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	if err != nil {
		m.errors[method]++
	}
}

type rpcHandler func(method string, params map[string]any) (any, *rpcErr)

type rpcErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// serveRPC answers one JSON-RPC request per connection on a unix socket.
func serveRPC(t *testing.T, handler rpcHandler) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rpc")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				var req struct {
					ID     uint64         `json:"id"`
					Method string         `json:"method"`
					Params map[string]any `json:"params"`
				}
				if err := json.NewDecoder(conn).Decode(&req); err != nil {
					return
				}
				result, rerr := handler(req.Method, req.Params)
				resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
				if rerr != nil {
					resp["error"] = rerr
				} else {
					resp["result"] = result
				}
				_ = json.NewEncoder(conn).Encode(resp)
			}(conn)
		}
	}()
	return path
}

func newTestClient(path string, timeout time.Duration) (Client, *rpcMetrics) {
	metrics := &rpcMetrics{calls: map[string]int{}, errors: map[string]int{}}
	conf := &structures.Config{Lightning: structures.LightningConfig{RPCFile: path, Timeout: timeout}}
	return NewRPCClient(conf, nopLogger{}, metrics), metrics
}

func TestRPCClient_GetInfo(t *testing.T) {
	path := serveRPC(t, func(string, map[string]any) (any, *rpcErr) {
		return json.RawMessage(`{
			"id": "02abc",
			"alias": "mynode",
			"version": "v24.11.1",
			"address": [{"type": "ipv4", "address": "1.2.3.4", "port": 9735}],
			"binding": [],
			"fees_collected_msat": 1234
		}`), nil
	})
	client, metrics := newTestClient(path, time.Second)

	info, err := client.GetInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "02abc", info.ID)
	assert.Equal(t, "v24.11.1", info.Version)
	require.Len(t, info.Address, 1)
	assert.Equal(t, int64(9735), info.Address[0].Port.Int64)
	assert.Equal(t, int64(1234), info.FeesCollectedMsat.Int64)
	assert.Equal(t, 1, metrics.calls["getinfo"])
}

func TestRPCClient_ListForwardsSendsIndex(t *testing.T) {
	var got map[string]any
	path := serveRPC(t, func(_ string, params map[string]any) (any, *rpcErr) {
		got = params
		return json.RawMessage(`{"forwards": [{
			"created_index": 7,
			"in_channel": "100x1x0",
			"in_htlc_id": 3,
			"out_channel": "200x2x1",
			"in_msat": "1001msat",
			"out_msat": 1000,
			"fee_msat": 1,
			"status": "settled",
			"received_time": 1700000000.25,
			"resolved_time": 1700000001.5
		}]}`), nil
	})
	client, _ := newTestClient(path, time.Second)

	forwards, err := client.ListForwards(context.Background(), ListRequest{Indexed: true, Start: 5})
	require.NoError(t, err)
	assert.Equal(t, "created", got["index"])
	assert.Equal(t, float64(5), got["start"])

	require.Len(t, forwards, 1)
	ev := forwards[0].Event()
	assert.Equal(t, "100x1x0/3", ev.Key())
	assert.Equal(t, int64(1001), ev.InMsat.Int64)
	assert.Equal(t, int64(1), ev.FeeMsat().Int64)
	assert.Equal(t, time.Unix(1700000001, 500_000_000), ev.SettledAt().Time)
}

func TestRPCClient_UnindexedRequestHasNoParams(t *testing.T) {
	var got map[string]any
	path := serveRPC(t, func(_ string, params map[string]any) (any, *rpcErr) {
		got = params
		return json.RawMessage(`{"invoices": []}`), nil
	})
	client, _ := newTestClient(path, time.Second)

	invoices, err := client.ListInvoices(context.Background(), ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, invoices)
	assert.Empty(t, got)
}

func TestRPCClient_RPCError(t *testing.T) {
	path := serveRPC(t, func(string, map[string]any) (any, *rpcErr) {
		return nil, &rpcErr{Code: -32601, Message: "Unknown command"}
	})
	client, metrics := newTestClient(path, time.Second)

	_, err := client.Decode(context.Background(), "lnbc1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRPC)
	var re *RPCError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "decode", re.Method)
	assert.Equal(t, -32601, re.Code)
	assert.Equal(t, 1, metrics.errors["decode"])
}

func TestRPCClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	path := serveRPC(t, func(string, map[string]any) (any, *rpcErr) {
		<-release
		return json.RawMessage(`{}`), nil
	})
	client, _ := newTestClient(path, 50*time.Millisecond)

	start := time.Now()
	_, err := client.ListPeers(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRPCClient_CancelledContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	path := serveRPC(t, func(string, map[string]any) (any, *rpcErr) {
		<-release
		return json.RawMessage(`{}`), nil
	})
	client, _ := newTestClient(path, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := client.ListFunds(ctx)
	require.Error(t, err)
}

func TestRPCClient_MissingSocket(t *testing.T) {
	client, metrics := newTestClient(filepath.Join(t.TempDir(), "absent"), time.Second)

	_, err := client.ListPeerChannels(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRPC))
	assert.Equal(t, 1, metrics.errors["listpeerchannels"])
}
