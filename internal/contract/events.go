package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// LogEvent is one historical contract event. RecordID is the indexed
// vineyard or process id, depending on Name.
type LogEvent struct {
	Name        string
	RecordID    uint64
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}

// HeadBlock returns the current chain head number
func (b *Binding) HeadBlock(ctx context.Context) (uint64, error) {
	header, err := b.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, wrapCall("headBlock", err)
	}
	return header.Number.Uint64(), nil
}

// FilterRecordEvents replays both record events over a block range.
// Used by the indexer only; views read the projection, not the log.
func (b *Binding) FilterRecordEvents(ctx context.Context, from, to uint64) ([]LogEvent, error) {
	vineyardTopic := b.abi.Events[EventVineyardRegistered].ID
	processTopic := b.abi.Events[EventProcessAdded].ID

	logs, err := b.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{b.address},
		Topics:    [][]common.Hash{{vineyardTopic, processTopic}},
	})
	if err != nil {
		return nil, wrapCall("filterLogs", err)
	}

	events := make([]LogEvent, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) < 2 {
			continue
		}
		var name string
		switch l.Topics[0] {
		case vineyardTopic:
			name = EventVineyardRegistered
		case processTopic:
			name = EventProcessAdded
		default:
			continue
		}
		events = append(events, LogEvent{
			Name:        name,
			RecordID:    new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64(),
			BlockNumber: l.BlockNumber,
			TxHash:      l.TxHash,
			LogIndex:    l.Index,
		})
	}
	return events, nil
}

// FilterEvent replays a single event name over a block range, optionally
// restricted to one record id.
func (b *Binding) FilterEvent(ctx context.Context, name string, recordID *uint64, from, to uint64) ([]LogEvent, error) {
	ev, ok := b.abi.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %s", name)
	}

	topics := [][]common.Hash{{ev.ID}}
	if recordID != nil {
		topics = append(topics, []common.Hash{
			common.BigToHash(new(big.Int).SetUint64(*recordID)),
		})
	}

	logs, err := b.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{b.address},
		Topics:    topics,
	})
	if err != nil {
		return nil, wrapCall("filterLogs", err)
	}

	events := make([]LogEvent, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) < 2 {
			continue
		}
		events = append(events, LogEvent{
			Name:        name,
			RecordID:    new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64(),
			BlockNumber: l.BlockNumber,
			TxHash:      l.TxHash,
			LogIndex:    l.Index,
		})
	}
	return events, nil
}
