package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bailuo/redspot/internal/config"
)

func newNode(t *testing.T, handler func(method string, params []interface{}) (interface{}, map[string]interface{})) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64         `json:"id"`
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, rpcErr := handler(req.Method, req.Params)
		reply := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			reply["error"] = rpcErr
		} else {
			reply["result"] = result
		}
		json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRPCCall(t *testing.T) {
	srv := newNode(t, func(method string, params []interface{}) (interface{}, map[string]interface{}) {
		switch method {
		case "system_chain":
			return "Development", nil
		case "echo":
			return params, nil
		}
		return nil, map[string]interface{}{"code": -32601, "message": "Method not found"}
	})

	p, err := NewRPC(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewRPC: %v", err)
	}
	defer p.Close()

	res, err := p.Call(context.Background(), "system_chain")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.String() != "Development" {
		t.Errorf("system_chain = %q", res.String())
	}

	res, err = p.Call(context.Background(), "echo", "a", 1)
	if err != nil {
		t.Fatalf("Call echo: %v", err)
	}
	if res.Get("0").String() != "a" || res.Get("1").Int() != 1 {
		t.Errorf("echo = %s", res.Raw)
	}

	_, err = p.Call(context.Background(), "nope")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32601 {
		t.Errorf("expected RPCError -32601, got %v", err)
	}
}

func TestRPCClosed(t *testing.T) {
	p, err := NewRPC("http://127.0.0.1:1", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	p.Close()
	if _, err := p.Call(context.Background(), "system_chain"); !errors.Is(err, ErrProviderClosed) {
		t.Errorf("expected ErrProviderClosed, got %v", err)
	}
}

func TestToHTTP(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"ws://127.0.0.1:9944", "http://127.0.0.1:9944", false},
		{"wss://rpc.example.com/ws", "https://rpc.example.com/ws", false},
		{"http://localhost:9933", "http://localhost:9933", false},
		{"ftp://localhost", "", true},
	}
	for _, tt := range tests {
		got, err := toHTTP(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("toHTTP(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("toHTTP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := NewRPC("", 0); !errors.Is(err, ErrEmptyEndpoint) {
		t.Errorf("expected ErrEmptyEndpoint, got %v", err)
	}
}

type stubProvider struct{ endpoint string }

func (s *stubProvider) Call(ctx context.Context, method string, params ...interface{}) (gjson.Result, error) {
	return gjson.Parse(`"` + method + `"`), nil
}
func (s *stubProvider) Endpoint() string { return s.endpoint }
func (s *stubProvider) Close() error     { return nil }

func TestLazyConstructsOnce(t *testing.T) {
	calls := 0
	factory := func(name string, cfg config.NetworkConfig) (Provider, error) {
		calls++
		return &stubProvider{endpoint: cfg.Endpoint}, nil
	}

	l := NewLazy("development", config.NetworkConfig{Endpoint: "ws://x"}, factory)
	if l.Built() || calls != 0 {
		t.Fatal("provider built eagerly")
	}
	if l.Endpoint() != "ws://x" {
		t.Errorf("Endpoint = %q", l.Endpoint())
	}

	for i := 0; i < 3; i++ {
		res, err := l.Call(context.Background(), "chain_getHeader")
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if res.String() != "chain_getHeader" {
			t.Errorf("unexpected result %s", res.Raw)
		}
	}
	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
	if !l.Built() {
		t.Error("Built should be true after first use")
	}
}

func TestLazyCachesError(t *testing.T) {
	calls := 0
	factory := func(name string, cfg config.NetworkConfig) (Provider, error) {
		calls++
		return nil, errors.New("connection refused")
	}
	l := NewLazy("substrate", config.NetworkConfig{}, factory)

	for i := 0; i < 2; i++ {
		_, err := l.Get()
		if err == nil || !strings.Contains(err.Error(), "substrate") {
			t.Errorf("expected wrapped error naming the network, got %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestEncodeRequest(t *testing.T) {
	tests := []struct {
		params []interface{}
		want   string
	}{
		{nil, `[]`},
		{[]interface{}{int64(1), "0xab", map[string]interface{}{"a": true}}, `[1,"0xab",{"a":true}]`},
	}
	for _, tt := range tests {
		body, err := encodeRequest(7, "chain_getBlock", tt.params)
		if err != nil {
			t.Fatalf("encodeRequest: %v", err)
		}
		req := gjson.ParseBytes(body)
		if req.Get("jsonrpc").String() != "2.0" || req.Get("id").Int() != 7 || req.Get("method").String() != "chain_getBlock" {
			t.Errorf("request = %s", body)
		}
		if got := req.Get("params").Raw; got != tt.want {
			t.Errorf("params = %s, want %s", got, tt.want)
		}
	}
}

func TestRPCMismatchedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":999,"result":"0x1"}`))
	}))
	defer srv.Close()

	p, err := NewRPC(srv.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Call(context.Background(), "system_chain"); err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Errorf("expected id mismatch error, got %v", err)
	}
}

type closingProvider struct {
	stubProvider
	closed chan struct{}
}

func (c *closingProvider) Close() error {
	close(c.closed)
	return nil
}

func TestLazyCloseWaitsForConstruction(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	p := &closingProvider{closed: make(chan struct{})}
	factory := func(name string, cfg config.NetworkConfig) (Provider, error) {
		close(started)
		<-release
		return p, nil
	}
	l := NewLazy("development", config.NetworkConfig{}, factory)

	got := make(chan Provider, 1)
	go func() {
		prov, _ := l.Get()
		got <- prov
	}()
	<-started

	closeErr := make(chan error, 1)
	go func() { closeErr <- l.Close() }()
	close(release)

	if prov := <-got; prov != p {
		t.Fatalf("Get returned %v", prov)
	}
	if err := <-closeErr; err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-p.closed:
	case <-time.After(time.Second):
		t.Fatal("provider built during Close was not closed")
	}
}
