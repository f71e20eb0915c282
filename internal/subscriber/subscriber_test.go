// Copyright 2025 Certen Protocol

package subscriber

import (
	"context"
	"sync"
	"testing"

	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/database"
	"github.com/tonvault/gateway/internal/pending"
	"github.com/tonvault/gateway/internal/txparser"
)

// fakeChain is a minimal ChainClient that hands its Subscribe callbacks
// back to the test so it can drive block notifications directly.
type fakeChain struct {
	mu    sync.Mutex
	state map[chainclient.AccountID]*chainclient.AccountState
	utime int64

	onMasterchain  func(chainclient.MasterchainBlock)
	onShard        func(chainclient.ShardBlock)
	onTransactions func(chainclient.ShardBlock, []chainclient.AccountTransaction)
}

func newFakeChain() *fakeChain {
	return &fakeChain{state: make(map[chainclient.AccountID]*chainclient.AccountState)}
}

func (f *fakeChain) GetContractState(ctx context.Context, account chainclient.AccountID) (*chainclient.AccountState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.state[account]
	if !ok {
		return nil, chainclient.ErrAccountNotFound
	}
	return st, nil
}

func (f *fakeChain) BroadcastExternalMessage(ctx context.Context, account chainclient.AccountID, boc []byte) (*chainclient.BroadcastResult, error) {
	return &chainclient.BroadcastResult{Accepted: true}, nil
}

func (f *fakeChain) CurrentUTime() int64 { return f.utime }

func (f *fakeChain) Subscribe(onMasterchain func(chainclient.MasterchainBlock), onShard func(chainclient.ShardBlock), onTransactions func(chainclient.ShardBlock, []chainclient.AccountTransaction)) func() {
	f.onMasterchain = onMasterchain
	f.onShard = onShard
	f.onTransactions = onTransactions
	return func() {}
}

func (f *fakeChain) Close() error { return nil }

func TestTransactionObserverReceivesDispatchedTransactions(t *testing.T) {
	chain := newFakeChain()
	sub := New(chain, pending.NewQueue())
	account := chainclient.AccountID{Workchain: 0, Hex: "acct"}

	var got []txparser.TxContext
	sub.RegisterTransactionObserver(account, database.AccountTypeWallet, func(ctx txparser.TxContext) {
		got = append(got, ctx)
	})

	tx := chainclient.AccountTransaction{Account: account, TransactionHash: "tx1"}
	chain.onTransactions(chainclient.ShardBlock{GenUtime: 100, BlockID: "b1"}, []chainclient.AccountTransaction{tx})

	if len(got) != 1 {
		t.Fatalf("expected 1 dispatched tx, got %d", len(got))
	}
	if got[0].Transaction.TransactionHash != "tx1" {
		t.Errorf("tx hash mismatch: got %s", got[0].Transaction.TransactionHash)
	}
	if got[0].AccountType != database.AccountTypeWallet {
		t.Errorf("account type mismatch: got %s", got[0].AccountType)
	}
}

func TestTransactionObserverIgnoresUnsubscribedAccount(t *testing.T) {
	chain := newFakeChain()
	sub := New(chain, pending.NewQueue())
	account := chainclient.AccountID{Workchain: 0, Hex: "acct"}
	other := chainclient.AccountID{Workchain: 0, Hex: "other"}

	var calls int
	sub.RegisterTransactionObserver(account, database.AccountTypeWallet, func(ctx txparser.TxContext) {
		calls++
	})

	chain.onTransactions(chainclient.ShardBlock{}, []chainclient.AccountTransaction{{Account: other}})

	if calls != 0 {
		t.Errorf("expected no dispatch for unsubscribed account, got %d calls", calls)
	}
}

func TestTransactionObserversDispatchedInRegistrationOrder(t *testing.T) {
	chain := newFakeChain()
	sub := New(chain, pending.NewQueue())
	account := chainclient.AccountID{Workchain: 0, Hex: "acct"}

	var order []int
	sub.RegisterTransactionObserver(account, database.AccountTypeWallet, func(ctx txparser.TxContext) { order = append(order, 1) })
	sub.RegisterTransactionObserver(account, database.AccountTypeWallet, func(ctx txparser.TxContext) { order = append(order, 2) })
	sub.RegisterTransactionObserver(account, database.AccountTypeWallet, func(ctx txparser.TxContext) { order = append(order, 3) })

	chain.onTransactions(chainclient.ShardBlock{}, []chainclient.AccountTransaction{{Account: account}})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected dispatch order [1 2 3], got %v", order)
	}
}

func TestStateObserverReceivesShardBlockUpdate(t *testing.T) {
	chain := newFakeChain()
	account := chainclient.AccountID{Workchain: 0, Hex: "acct"}
	chain.state[account] = &chainclient.AccountState{Deployed: true, LastTxLt: 5}

	sub := New(chain, pending.NewQueue())

	var got *chainclient.AccountState
	sub.RegisterStateObserver(account, database.AccountTypeWallet, func(st *chainclient.AccountState) {
		got = st
	})

	chain.onShard(chainclient.ShardBlock{Workchain: 0, GenUtime: 100, Accounts: []chainclient.AccountID{account}})

	if got == nil {
		t.Fatal("expected state observer to be notified")
	}
	if got.LastTxLt != 5 {
		t.Errorf("state mismatch: got LastTxLt=%d", got.LastTxLt)
	}
}

func TestUnregisterRemovesEmptySlot(t *testing.T) {
	chain := newFakeChain()
	account := chainclient.AccountID{Workchain: 0, Hex: "acct"}
	sub := New(chain, pending.NewQueue())

	handle := sub.RegisterTransactionObserver(account, database.AccountTypeWallet, func(ctx txparser.TxContext) {})
	sub.mu.Lock()
	_, exists := sub.slots[account]
	sub.mu.Unlock()
	if !exists {
		t.Fatal("expected slot to exist after registration")
	}

	handle.Unregister()

	sub.mu.Lock()
	_, exists = sub.slots[account]
	sub.mu.Unlock()
	if exists {
		t.Error("expected slot to be removed once its last observer unregisters")
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	chain := newFakeChain()
	account := chainclient.AccountID{Workchain: 0, Hex: "acct"}
	sub := New(chain, pending.NewQueue())

	handle := sub.RegisterTransactionObserver(account, database.AccountTypeWallet, func(ctx txparser.TxContext) {})
	handle.Unregister()
	handle.Unregister() // must not panic
}

func TestOnShardSweepsPendingQueueForBlockWorkchain(t *testing.T) {
	chain := newFakeChain()
	q := pending.NewQueue()
	sub := New(chain, q)

	ch, err := q.Add(pending.Key{Workchain: 0, Hex: "a", MsgHash: "m"}, 50)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	chain.onShard(chainclient.ShardBlock{Workchain: 0, GenUtime: 200})

	select {
	case outcome := <-ch:
		if outcome != pending.Expired {
			t.Errorf("expected Expired outcome, got %v", outcome)
		}
	default:
		t.Error("expected waiter to resolve after onShard sweep")
	}
}

func TestMasterchainObserversAreNotifiedOnEveryBlock(t *testing.T) {
	chain := newFakeChain()
	sub := New(chain, pending.NewQueue())

	var blocks []chainclient.MasterchainBlock
	sub.RegisterMasterchainObserver(func(b chainclient.MasterchainBlock) {
		blocks = append(blocks, b)
	})

	chain.onMasterchain(chainclient.MasterchainBlock{SeqNo: 1, KeyBlock: false})
	chain.onMasterchain(chainclient.MasterchainBlock{SeqNo: 2, KeyBlock: true})

	if len(blocks) != 2 {
		t.Fatalf("expected 2 masterchain notifications, got %d", len(blocks))
	}
	if !blocks[1].KeyBlock {
		t.Error("expected second block to be flagged as a key block")
	}
}
