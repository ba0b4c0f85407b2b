package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrEmptyEndpoint is returned when a network has no endpoint configured.
var ErrEmptyEndpoint = errors.New("network endpoint is empty")

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int64
	Message string
	Data    string
}

func (e *RPCError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// RPC is a JSON-RPC 2.0 provider over HTTP. WebSocket endpoints are mapped
// to the HTTP endpoint served on the same address by substrate nodes.
type RPC struct {
	endpoint string
	client   *http.Client
	nextID   atomic.Int64

	mu     sync.Mutex
	closed bool
}

// NewRPC creates a provider for endpoint. A zero timeout means 30 seconds.
func NewRPC(endpoint string, timeout time.Duration) (*RPC, error) {
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	httpURL, err := toHTTP(endpoint)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RPC{
		endpoint: httpURL,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// toHTTP rewrites ws:// and wss:// endpoints to http:// and https://.
func toHTTP(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// Endpoint returns the HTTP endpoint requests are sent to.
func (p *RPC) Endpoint() string {
	return p.endpoint
}

// Call sends a JSON-RPC request and returns its "result" member.
func (p *RPC) Call(ctx context.Context, method string, params ...interface{}) (gjson.Result, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return gjson.Result{}, ErrProviderClosed
	}

	id := p.nextID.Add(1)
	body, err := encodeRequest(id, method, params)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Tracef("rpc %s -> %s", method, p.endpoint)
	resp, err := p.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("call %s: unexpected status %s", method, resp.Status)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("call %s: malformed response", method)
	}

	reply := gjson.ParseBytes(data)
	if got := reply.Get("id"); got.Exists() && got.Int() != id {
		return gjson.Result{}, fmt.Errorf("call %s: response id %s does not match request id %d", method, got.Raw, id)
	}
	if e := reply.Get("error"); e.Exists() {
		return gjson.Result{}, &RPCError{
			Code:    e.Get("code").Int(),
			Message: e.Get("message").String(),
			Data:    e.Get("data").String(),
		}
	}
	return reply.Get("result"), nil
}

// encodeRequest builds a JSON-RPC 2.0 request body. Nil params are sent
// as an empty array.
func encodeRequest(id int64, method string, params []interface{}) ([]byte, error) {
	if params == nil {
		params = []interface{}{}
	}
	body := []byte(`{"jsonrpc":"2.0"}`)
	var err error
	if body, err = sjson.SetBytes(body, "id", id); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "method", method); err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "params", params)
}

// Close marks the provider closed and releases idle connections.
func (p *RPC) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.client.CloseIdleConnections()
	return nil
}

var _ Provider = (*RPC)(nil)
