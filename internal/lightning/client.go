package lightning

import (
	"context"
	"errors"
	"fmt"
	"net"
	"summard/internal/providers"
	"summard/internal/structures"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/atomic"
)

var ErrRPC = errors.New("node rpc error")

// Client is the subset of the node RPC the daemon consumes.
type Client interface {
	GetInfo(ctx context.Context) (*GetInfoResponse, error)
	ListPeers(ctx context.Context) ([]Peer, error)
	ListPeerChannels(ctx context.Context) ([]PeerChannel, error)
	ListFunds(ctx context.Context) ([]FundsOutput, error)
	ListNodes(ctx context.Context, id string) ([]Node, error)
	ListForwards(ctx context.Context, req ListRequest) ([]Forward, error)
	ListPays(ctx context.Context, req ListRequest) ([]Pay, error)
	ListInvoices(ctx context.Context, req ListRequest) ([]Invoice, error)
	Decode(ctx context.Context, s string) (*Decoded, error)
}

type RPCError struct {
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: code %d: %s", e.Method, e.Code, e.Message)
}

func (e *RPCError) Is(target error) bool { return target == ErrRPC }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RPCClient speaks JSON-RPC 2.0 over the node's unix socket, one connection
// per call.
type RPCClient struct {
	path    string
	timeout time.Duration
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	dialer  net.Dialer
	nextID  atomic.Uint64
}

func NewRPCClient(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) Client {
	return &RPCClient{
		path:    conf.Lightning.RPCFile,
		timeout: conf.Lightning.Timeout,
		logger:  logger,
		metrics: metrics,
	}
}

func (c *RPCClient) call(ctx context.Context, method string, params map[string]any, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveRPC(method, time.Since(start), err)
		if err != nil {
			c.logger.Warnf(providers.TypeRPC, "%s failed after %s: %s", method, time.Since(start), err)
		} else {
			c.logger.Debugf(providers.TypeRPC, "%s took %s", method, time.Since(start))
		}
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	conn, err := c.dialer.DialContext(ctx, "unix", c.path)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.path, err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if params == nil {
		params = map[string]any{}
	}
	req := rpcRequest{JSONRPC: "2.0", ID: c.nextID.Inc(), Method: method, Params: params}
	if err = json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("%s: write request: %w", method, err)
	}

	var resp rpcResponse
	if err = json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	if resp.Error != nil {
		return &RPCError{Method: method, Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

func (c *RPCClient) GetInfo(ctx context.Context) (*GetInfoResponse, error) {
	var out GetInfoResponse
	if err := c.call(ctx, "getinfo", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RPCClient) ListPeers(ctx context.Context) ([]Peer, error) {
	var out struct {
		Peers []Peer `json:"peers"`
	}
	if err := c.call(ctx, "listpeers", nil, &out); err != nil {
		return nil, err
	}
	return out.Peers, nil
}

func (c *RPCClient) ListPeerChannels(ctx context.Context) ([]PeerChannel, error) {
	var out struct {
		Channels []PeerChannel `json:"channels"`
	}
	if err := c.call(ctx, "listpeerchannels", nil, &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

func (c *RPCClient) ListFunds(ctx context.Context) ([]FundsOutput, error) {
	var out struct {
		Outputs []FundsOutput `json:"outputs"`
	}
	if err := c.call(ctx, "listfunds", map[string]any{"spent": false}, &out); err != nil {
		return nil, err
	}
	return out.Outputs, nil
}

func (c *RPCClient) ListNodes(ctx context.Context, id string) ([]Node, error) {
	var out struct {
		Nodes []Node `json:"nodes"`
	}
	if err := c.call(ctx, "listnodes", map[string]any{"id": id}, &out); err != nil {
		return nil, err
	}
	return out.Nodes, nil
}

func (c *RPCClient) ListForwards(ctx context.Context, req ListRequest) ([]Forward, error) {
	var out struct {
		Forwards []Forward `json:"forwards"`
	}
	if err := c.call(ctx, "listforwards", req.params(), &out); err != nil {
		return nil, err
	}
	return out.Forwards, nil
}

func (c *RPCClient) ListPays(ctx context.Context, req ListRequest) ([]Pay, error) {
	var out struct {
		Pays []Pay `json:"pays"`
	}
	if err := c.call(ctx, "listpays", req.params(), &out); err != nil {
		return nil, err
	}
	return out.Pays, nil
}

func (c *RPCClient) ListInvoices(ctx context.Context, req ListRequest) ([]Invoice, error) {
	var out struct {
		Invoices []Invoice `json:"invoices"`
	}
	if err := c.call(ctx, "listinvoices", req.params(), &out); err != nil {
		return nil, err
	}
	return out.Invoices, nil
}

func (c *RPCClient) Decode(ctx context.Context, s string) (*Decoded, error) {
	var out Decoded
	if err := c.call(ctx, "decode", map[string]any{"string": s}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
