// Copyright 2025 Certen Protocol
//
// Chain client facade (C2, spec.md §4 "Chain client facade"). The gateway
// never speaks the lite-server ADNL protocol directly; it talks to a
// lite-server HTTP/JSON-RPC bridge over the same go-ethereum/rpc client
// used throughout the pack for JSON-RPC transports, so dialing, batching,
// and context cancellation all follow the same idiom as an Ethereum client.
package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// ChainClient is the facade C4, C6, and C9 depend on. Nothing outside this
// package talks to the lite-server bridge directly.
type ChainClient interface {
	// GetContractState fetches the current state of an account. Returns
	// ErrAccountNotFound if the account has never been touched on-chain.
	GetContractState(ctx context.Context, account AccountID) (*AccountState, error)

	// BroadcastExternalMessage submits a signed external message (BOC) for
	// inclusion in the next block the account's shard validates.
	BroadcastExternalMessage(ctx context.Context, account AccountID, messageBoc []byte) (*BroadcastResult, error)

	// CurrentUTime returns the most recently observed masterchain gen_utime.
	CurrentUTime() int64

	// Subscribe registers a block-notification callback. The returned
	// unsubscribe func stops delivery; it is safe to call more than once.
	Subscribe(onMasterchain func(MasterchainBlock), onShard func(ShardBlock), onTransactions func(ShardBlock, []AccountTransaction)) (unsubscribe func())

	Close() error
}

// Config configures the JSON-RPC bridge connection.
type Config struct {
	Endpoint       string
	RequestTimeout time.Duration
	PollInterval   time.Duration
}

// Client is the concrete ChainClient backed by a lite-server JSON-RPC bridge.
type Client struct {
	rpc            *rpc.Client
	requestTimeout time.Duration

	poller *blockPoller
}

// Dial connects to the lite-server bridge and starts the background block
// poller that drives C4's per-block dispatch.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("chainclient: endpoint is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 1500 * time.Millisecond
	}

	rc, err := rpc.DialContext(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("chainclient: dial %s: %w", cfg.Endpoint, err)
	}

	c := &Client{rpc: rc, requestTimeout: cfg.RequestTimeout}
	c.poller = newBlockPoller(c, cfg.PollInterval)
	c.poller.start()
	return c, nil
}

func (c *Client) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.requestTimeout)
}

// rpcAccountState is the raw JSON-RPC response shape for ton_getAccountState.
type rpcAccountState struct {
	Workchain  int32  `json:"workchain"`
	Hex        string `json:"hex"`
	Balance    string `json:"balance"`
	LastTxHash string `json:"lastTransactionHash"`
	LastTxLt   string `json:"lastTransactionLt"`
	Deployed   bool   `json:"deployed"`
	DataBoc    []byte `json:"dataBoc"`
	CodeBoc    []byte `json:"codeBoc"`
	GenUtime   int64  `json:"genUtime"`
}

func (c *Client) GetContractState(ctx context.Context, account AccountID) (*AccountState, error) {
	var resp rpcAccountState
	err := c.rpc.CallContext(ctx, &resp, "ton_getAccountState", account.Workchain, account.Hex)
	if err != nil {
		return nil, fmt.Errorf("chainclient: get_contract_state(%d:%s): %w", account.Workchain, account.Hex, err)
	}
	if resp.Hex == "" {
		return nil, ErrAccountNotFound
	}

	balance, ok := new(big.Int).SetString(resp.Balance, 10)
	if !ok {
		balance = big.NewInt(0)
	}
	lastLt := parseUint64(resp.LastTxLt)

	return &AccountState{
		Workchain:  resp.Workchain,
		Hex:        resp.Hex,
		Balance:    balance,
		LastTxHash: resp.LastTxHash,
		LastTxLt:   lastLt,
		Deployed:   resp.Deployed,
		DataBoc:    resp.DataBoc,
		CodeBoc:    resp.CodeBoc,
		GenUtime:   resp.GenUtime,
	}, nil
}

type rpcBroadcastResult struct {
	MessageHash string `json:"messageHash"`
	Accepted    bool   `json:"accepted"`
}

func (c *Client) BroadcastExternalMessage(ctx context.Context, account AccountID, messageBoc []byte) (*BroadcastResult, error) {
	var resp rpcBroadcastResult
	err := c.rpc.CallContext(ctx, &resp, "ton_sendBoc", account.Workchain, account.Hex, messageBoc)
	if err != nil {
		return nil, fmt.Errorf("chainclient: broadcast_external_message: %w", err)
	}
	if !resp.Accepted {
		return nil, ErrBroadcastRejected
	}
	return &BroadcastResult{MessageHash: resp.MessageHash, Accepted: resp.Accepted}, nil
}

func (c *Client) CurrentUTime() int64 {
	return c.poller.currentUTime()
}

func (c *Client) Subscribe(onMasterchain func(MasterchainBlock), onShard func(ShardBlock), onTransactions func(ShardBlock, []AccountTransaction)) func() {
	return c.poller.subscribe(onMasterchain, onShard, onTransactions)
}

func (c *Client) Close() error {
	c.poller.stop()
	c.rpc.Close()
	return nil
}

func parseUint64(s string) uint64 {
	var v uint64
	if s == "" {
		return 0
	}
	_, err := fmt.Sscanf(s, "%d", &v)
	if err != nil {
		return 0
	}
	return v
}
