// Copyright 2025 Certen Protocol
//
// Chain subscriber (C4, spec.md §4.5). Holds a subscription slot per
// observed account; each slot carries state observers (synchronous
// get_contract_state awaits) and transaction observers (event streaming).
// Observers are registered through explicit handles — "weak references" in
// the source design map to a Handle whose Unregister drops the callback
// and removes the slot at once if it has no observers left.
package subscriber

import (
	"context"
	"sort"
	"sync"

	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/database"
	"github.com/tonvault/gateway/internal/pending"
	"github.com/tonvault/gateway/internal/txparser"
)

// StateObserver is notified with an account's freshly observed state.
type StateObserver func(*chainclient.AccountState)

// TxObserver is notified, in registration order, for every transaction of
// its account in block order.
type TxObserver func(txparser.TxContext)

// Handle is returned by the Register* methods; Unregister drops the
// callback. Safe to call more than once.
type Handle struct {
	unregister func()
	once       sync.Once
}

func (h *Handle) Unregister() {
	h.once.Do(func() {
		if h.unregister != nil {
			h.unregister()
		}
	})
}

type slot struct {
	account        chainclient.AccountID
	accountType    database.AccountType
	nextObserverID uint64
	stateObservers map[uint64]StateObserver
	txObservers    map[uint64]TxObserver
}

func newSlot(account chainclient.AccountID, accountType database.AccountType) *slot {
	return &slot{
		account:        account,
		accountType:    accountType,
		stateObservers: make(map[uint64]StateObserver),
		txObservers:    make(map[uint64]TxObserver),
	}
}

func (s *slot) empty() bool {
	return len(s.stateObservers) == 0 && len(s.txObservers) == 0
}

// MasterchainObserver is notified on every masterchain block, including
// non-key blocks; it is the hook callers use to persist a resume anchor
// (spec.md §3 LastKeyBlock) without the subscriber depending on C1 itself.
type MasterchainObserver func(chainclient.MasterchainBlock)

// Subscriber is the C4 chain subscriber.
type Subscriber struct {
	chain   chainclient.ChainClient
	pending *pending.Queue

	mu                   sync.Mutex
	slots                map[chainclient.AccountID]*slot
	masterchainObservers []MasterchainObserver

	unsubscribeChain func()
}

func New(chain chainclient.ChainClient, pendingQueue *pending.Queue) *Subscriber {
	s := &Subscriber{
		chain:   chain,
		pending: pendingQueue,
		slots:   make(map[chainclient.AccountID]*slot),
	}
	s.unsubscribeChain = chain.Subscribe(s.onMasterchain, s.onShard, s.onTransactions)
	return s
}

func (s *Subscriber) Close() {
	if s.unsubscribeChain != nil {
		s.unsubscribeChain()
	}
}

// CurrentUTime returns the system's chain-time clock (gen_utime of the
// latest processed masterchain block).
func (s *Subscriber) CurrentUTime() int64 {
	return s.chain.CurrentUTime()
}

func (s *Subscriber) getOrCreateSlot(account chainclient.AccountID, accountType database.AccountType) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[account]
	if !ok {
		sl = newSlot(account, accountType)
		s.slots[account] = sl
	}
	return sl
}

// RegisterStateObserver subscribes to future contract-state updates for
// account.
func (s *Subscriber) RegisterStateObserver(account chainclient.AccountID, accountType database.AccountType, observer StateObserver) *Handle {
	sl := s.getOrCreateSlot(account, accountType)

	s.mu.Lock()
	sl.nextObserverID++
	id := sl.nextObserverID
	sl.stateObservers[id] = observer
	s.mu.Unlock()

	return &Handle{unregister: func() {
		s.mu.Lock()
		delete(sl.stateObservers, id)
		empty := sl.empty()
		if empty {
			delete(s.slots, account)
		}
		s.mu.Unlock()
	}}
}

// RegisterTransactionObserver subscribes to future transactions of account.
func (s *Subscriber) RegisterTransactionObserver(account chainclient.AccountID, accountType database.AccountType, observer TxObserver) *Handle {
	sl := s.getOrCreateSlot(account, accountType)

	s.mu.Lock()
	sl.nextObserverID++
	id := sl.nextObserverID
	sl.txObservers[id] = observer
	s.mu.Unlock()

	return &Handle{unregister: func() {
		s.mu.Lock()
		delete(sl.txObservers, id)
		empty := sl.empty()
		if empty {
			delete(s.slots, account)
		}
		s.mu.Unlock()
	}}
}

// RegisterMasterchainObserver subscribes to every future masterchain block.
// There is no Handle/unregister here: the callback list is small and fixed
// at startup (the key-block resume writer), unlike the per-account observer
// sets above.
func (s *Subscriber) RegisterMasterchainObserver(observer MasterchainObserver) {
	s.mu.Lock()
	s.masterchainObservers = append(s.masterchainObservers, observer)
	s.mu.Unlock()
}

func (s *Subscriber) onMasterchain(block chainclient.MasterchainBlock) {
	// current_utime is tracked by the chain client itself; masterchain
	// awaiters beyond that (e.g. key-block resume bookkeeping) are handled
	// by the caller wiring the LastKeyBlock repository to this callback.
	s.mu.Lock()
	observers := append([]MasterchainObserver(nil), s.masterchainObservers...)
	s.mu.Unlock()
	for _, obs := range observers {
		obs(block)
	}
}

func (s *Subscriber) onShard(block chainclient.ShardBlock) {
	for _, account := range block.Accounts {
		s.mu.Lock()
		sl, ok := s.slots[account]
		s.mu.Unlock()
		if !ok || len(sl.stateObservers) == 0 {
			continue
		}
		state, err := s.chain.GetContractState(context.Background(), account)
		if err != nil {
			continue
		}
		s.mu.Lock()
		observers := snapshotStateObservers(sl)
		s.mu.Unlock()
		for _, obs := range observers {
			obs(state)
		}
	}

	s.pending.Sweep(block.Workchain, block.GenUtime)
}

func (s *Subscriber) onTransactions(block chainclient.ShardBlock, txs []chainclient.AccountTransaction) {
	for _, tx := range txs {
		s.mu.Lock()
		sl, ok := s.slots[tx.Account]
		s.mu.Unlock()
		if !ok {
			continue
		}

		ctx := txparser.TxContext{
			Account:       tx.Account,
			AccountType:   sl.accountType,
			Transaction:   tx,
			BlockGenUtime: block.GenUtime,
			BlockHash:     block.BlockID,
		}

		s.mu.Lock()
		observers := snapshotTxObservers(sl)
		s.mu.Unlock()
		for _, obs := range observers {
			obs(ctx)
		}
	}
}

func snapshotStateObservers(sl *slot) []StateObserver {
	out := make([]StateObserver, 0, len(sl.stateObservers))
	for _, o := range sl.stateObservers {
		out = append(out, o)
	}
	return out
}

func snapshotTxObservers(sl *slot) []TxObserver {
	ids := make([]uint64, 0, len(sl.txObservers))
	for id := range sl.txObservers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]TxObserver, 0, len(ids))
	for _, id := range ids {
		out = append(out, sl.txObservers[id])
	}
	return out
}
