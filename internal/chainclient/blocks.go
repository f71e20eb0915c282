// Copyright 2025 Certen Protocol
//
// Background block poller driving C4's per-block dispatch. The lite-server
// bridge has no native push subscription, so the client polls
// ton_getMasterchainBlocksSince on an interval and fans each new block out to
// every registered observer; this keeps the ChainClient interface identical
// whether the bridge eventually grows a websocket push path or not.

package chainclient

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type blockSubscriber struct {
	id             uint64
	onMasterchain  func(MasterchainBlock)
	onShard        func(ShardBlock)
	onTransactions func(ShardBlock, []AccountTransaction)
}

type blockPoller struct {
	client   *Client
	interval time.Duration

	mu          sync.Mutex
	subscribers map[uint64]*blockSubscriber
	nextID      uint64

	utime int64 // atomic

	stopCh chan struct{}
	doneCh chan struct{}
}

func newBlockPoller(client *Client, interval time.Duration) *blockPoller {
	return &blockPoller{
		client:      client,
		interval:    interval,
		subscribers: make(map[uint64]*blockSubscriber),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

func (p *blockPoller) start() {
	go p.run()
}

func (p *blockPoller) stop() {
	close(p.stopCh)
	<-p.doneCh
}

func (p *blockPoller) currentUTime() int64 {
	return atomic.LoadInt64(&p.utime)
}

func (p *blockPoller) subscribe(onMasterchain func(MasterchainBlock), onShard func(ShardBlock), onTransactions func(ShardBlock, []AccountTransaction)) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subscribers[id] = &blockSubscriber{id: id, onMasterchain: onMasterchain, onShard: onShard, onTransactions: onTransactions}
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

type rpcMasterchainBlock struct {
	BlockID  string `json:"blockId"`
	SeqNo    uint64 `json:"seqNo"`
	GenUtime int64  `json:"genUtime"`
	KeyBlock bool   `json:"keyBlock"`
}

type rpcShardBlock struct {
	BlockID   string      `json:"blockId"`
	Workchain int32       `json:"workchain"`
	SeqNo     uint64      `json:"seqNo"`
	GenUtime  int64       `json:"genUtime"`
	Accounts  []AccountID `json:"accounts"`
}

type rpcMessageInfo struct {
	Kind            MessageKind `json:"kind"`
	Hash            string      `json:"hash"`
	Value           string      `json:"value"`
	Fee             string      `json:"fee"`
	SourceWorkchain int32       `json:"sourceWorkchain"`
	SourceHex       string      `json:"sourceHex"`
	DestWorkchain   int32       `json:"destWorkchain"`
	DestHex         string      `json:"destHex"`
	Body            []byte      `json:"body"`
}

type rpcAccountTransaction struct {
	Account               AccountID        `json:"account"`
	TransactionHash       string           `json:"transactionHash"`
	Lt                    uint64           `json:"lt"`
	InboundMessage        *rpcMessageInfo  `json:"inboundMessage"`
	OutMessages           []rpcMessageInfo `json:"outMessages"`
	StorageFee            string           `json:"storageFee"`
	ComputeFee            string           `json:"computeFee"`
	ActionFee             string           `json:"actionFee"`
	BalanceChange         string           `json:"balanceChange"`
	Aborted               bool             `json:"aborted"`
	Bounce                bool             `json:"bounce"`
	MultisigTransactionID *int64           `json:"multisigTransactionId"`
}

func (p *blockPoller) run() {
	defer close(p.doneCh)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var lastMasterchainSeqNo uint64

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pollOnce(&lastMasterchainSeqNo)
		}
	}
}

func (p *blockPoller) pollOnce(lastMasterchainSeqNo *uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	var mcBlocks []rpcMasterchainBlock
	if err := p.client.rpc.CallContext(ctx, &mcBlocks, "ton_getMasterchainBlocksSince", *lastMasterchainSeqNo); err != nil {
		return
	}

	for _, mc := range mcBlocks {
		if mc.SeqNo <= *lastMasterchainSeqNo {
			continue
		}
		*lastMasterchainSeqNo = mc.SeqNo
		atomic.StoreInt64(&p.utime, mc.GenUtime)

		block := MasterchainBlock{BlockID: mc.BlockID, SeqNo: mc.SeqNo, GenUtime: mc.GenUtime, KeyBlock: mc.KeyBlock}
		p.dispatchMasterchain(block)

		var shards []rpcShardBlock
		if err := p.client.rpc.CallContext(ctx, &shards, "ton_getShardBlocks", mc.BlockID); err != nil {
			continue
		}
		for _, sb := range shards {
			shard := ShardBlock{BlockID: sb.BlockID, Workchain: sb.Workchain, SeqNo: sb.SeqNo, GenUtime: sb.GenUtime, Accounts: sb.Accounts}
			p.dispatchShard(shard)

			if len(shard.Accounts) == 0 {
				continue
			}
			var txs []rpcAccountTransaction
			if err := p.client.rpc.CallContext(ctx, &txs, "ton_getShardAccountTransactions", sb.BlockID); err != nil {
				continue
			}
			accountTxs := make([]AccountTransaction, len(txs))
			for i, t := range txs {
				var inbound *MessageInfo
				if t.InboundMessage != nil {
					m := toMessageInfo(*t.InboundMessage)
					inbound = &m
				}
				outMessages := make([]MessageInfo, len(t.OutMessages))
				for j, m := range t.OutMessages {
					outMessages[j] = toMessageInfo(m)
				}
				accountTxs[i] = AccountTransaction{
					Account: t.Account, TransactionHash: t.TransactionHash, Lt: t.Lt,
					InboundMessage: inbound, OutMessages: outMessages,
					StorageFee: t.StorageFee, ComputeFee: t.ComputeFee, ActionFee: t.ActionFee,
					BalanceChange: t.BalanceChange, Aborted: t.Aborted, Bounce: t.Bounce,
					MultisigTransactionID: t.MultisigTransactionID,
				}
			}
			p.dispatchTransactions(shard, accountTxs)
		}
	}
}

func toMessageInfo(m rpcMessageInfo) MessageInfo {
	return MessageInfo{
		Kind: m.Kind, Hash: m.Hash, Value: m.Value, Fee: m.Fee,
		SourceWorkchain: m.SourceWorkchain, SourceHex: m.SourceHex,
		DestWorkchain: m.DestWorkchain, DestHex: m.DestHex, Body: m.Body,
	}
}

func (p *blockPoller) dispatchMasterchain(block MasterchainBlock) {
	for _, sub := range p.snapshotSubscribers() {
		if sub.onMasterchain != nil {
			sub.onMasterchain(block)
		}
	}
}

func (p *blockPoller) dispatchShard(block ShardBlock) {
	for _, sub := range p.snapshotSubscribers() {
		if sub.onShard != nil {
			sub.onShard(block)
		}
	}
}

func (p *blockPoller) dispatchTransactions(block ShardBlock, txs []AccountTransaction) {
	for _, sub := range p.snapshotSubscribers() {
		if sub.onTransactions != nil {
			sub.onTransactions(block, txs)
		}
	}
}

func (p *blockPoller) snapshotSubscribers() []*blockSubscriber {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*blockSubscriber, 0, len(p.subscribers))
	for _, s := range p.subscribers {
		out = append(out, s)
	}
	return out
}
