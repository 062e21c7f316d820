package client

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     uint64              `json:"id"`
	Result jsoniter.RawMessage `json:"result"`
	Error  *rpcError           `json:"error"`
}

// EndpointProber checks that a JSON-RPC URL answers before it is dialed.
type EndpointProber struct {
	client  *fasthttp.Client
	timeout time.Duration
	logger  *zap.Logger
	nextID  atomic.Uint64
}

// NewEndpointProber creates a prober with the given per-request timeout.
func NewEndpointProber(timeout time.Duration, logger *zap.Logger) *EndpointProber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EndpointProber{
		client:  &fasthttp.Client{},
		timeout: timeout,
		logger:  logger.Named("EndpointProber"),
	}
}

// Probe asks the endpoint whether it is listening and which chain it serves.
// Nodes that do not implement net_listening are still accepted when
// eth_chainId answers.
func (p *EndpointProber) Probe(ctx context.Context, url string) (uint64, error) {
	var listening bool
	if err := p.call(ctx, url, "net_listening", &listening); err != nil {
		p.logger.Debug("net_listening probe failed", zap.String("url", url), zap.Error(err))
	} else if !listening {
		return 0, fmt.Errorf("endpoint %s reports it is not listening", url)
	}

	var chainIDHex string
	if err := p.call(ctx, url, "eth_chainId", &chainIDHex); err != nil {
		return 0, err
	}
	chainID, err := hexutil.DecodeUint64(chainIDHex)
	if err != nil {
		return 0, fmt.Errorf("endpoint %s returned malformed chain id %q: %w", url, chainIDHex, err)
	}
	p.logger.Debug("Endpoint probed", zap.String("url", url), zap.Uint64("chainID", chainID))
	return chainID, nil
}

func (p *EndpointProber) call(ctx context.Context, url, method string, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      p.nextID.Add(1),
		Method:  method,
		Params:  []interface{}{},
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.SetBody(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline := time.Now().Add(p.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := p.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("failed to execute %s against %s: %w", method, url, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("%s against %s failed with status %d", method, url, resp.StatusCode())
	}

	var decoded rpcResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return fmt.Errorf("failed to decode %s response from %s: %w", method, url, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("%s: %s", method, decoded.Error.Message)
	}
	if err := json.Unmarshal(decoded.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result from %s: %w", method, url, err)
	}
	return nil
}
