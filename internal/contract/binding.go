package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/winetrace/winetracego/internal/chain"
	"github.com/winetrace/winetracego/internal/config"
)

// Contract event names
const (
	EventVineyardRegistered = "VineyardRegistered"
	EventProcessAdded       = "ProcessAdded"
)

// VineyardInfo is the named form of the getVineyard tuple
type VineyardInfo struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Owner        string    `json:"owner"`
	GrapeVariety string    `json:"grape_variety"`
	Latitude     string    `json:"latitude"`
	Longitude    string    `json:"longitude"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ProcessInfo is the named form of the getProcess tuple
type ProcessInfo struct {
	ID          uint64    `json:"id"`
	VineyardID  uint64    `json:"vineyard_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
}

// RegisterVineyardInput holds the registerVineyard arguments
type RegisterVineyardInput struct {
	Name         string
	Owner        string
	GrapeVariety string
	Latitude     string
	Longitude    string
}

// AddProcessInput holds the addProcess arguments
type AddProcessInput struct {
	VineyardID  uint64
	Title       string
	Description string
	FileName    string
	FileType    string
	IPFSCid     string
}

// WriteResult reports a mined write. ID is the identifier the contract
// actually assigned, taken from the emitted event, never from the
// client-side candidate.
type WriteResult struct {
	ID          uint64      `json:"id"`
	TxHash      common.Hash `json:"tx_hash"`
	BlockNumber uint64      `json:"block_number"`
}

// Binding is the read/write facade over the deployed contract. Writes are
// serialized because the contract takes explicit ids and the candidate is
// derived from the current count.
type Binding struct {
	writeMu sync.Mutex

	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
	backend  chain.Backend
}

// NewBinding binds the address+ABI pair from the contract config file to the
// given backend.
func NewBinding(cc *config.ContractConfig, backend chain.Backend) (*Binding, error) {
	if backend == nil {
		return nil, ErrNotConnected
	}
	parsed, err := abi.JSON(strings.NewReader(string(cc.ABI)))
	if err != nil {
		return nil, fmt.Errorf("parse contract ABI: %w", err)
	}
	for _, name := range []string{EventVineyardRegistered, EventProcessAdded} {
		if _, ok := parsed.Events[name]; !ok {
			return nil, fmt.Errorf("contract ABI has no %s event", name)
		}
	}
	addr := common.HexToAddress(cc.Address)
	return &Binding{
		address:  addr,
		abi:      parsed,
		contract: bind.NewBoundContract(addr, parsed, backend, backend, backend),
		backend:  backend,
	}, nil
}

// Address returns the bound contract address
func (b *Binding) Address() common.Address {
	return b.address
}

// VineyardCount returns the number of registered vineyards
func (b *Binding) VineyardCount(ctx context.Context) (uint64, error) {
	return b.callCount(ctx, "vineyardCount")
}

// ProcessCount returns the number of recorded processes
func (b *Binding) ProcessCount(ctx context.Context) (uint64, error) {
	return b.callCount(ctx, "processCount")
}

// VineyardExists checks whether a vineyard id resolves on chain
func (b *Binding) VineyardExists(ctx context.Context, id uint64) (bool, error) {
	return b.callExists(ctx, "vineyardExistsCheck", id)
}

// ProcessExists checks whether a process id resolves on chain
func (b *Binding) ProcessExists(ctx context.Context, id uint64) (bool, error) {
	return b.callExists(ctx, "processExists", id)
}

// GetVineyard fetches and reshapes the getVineyard tuple
func (b *Binding) GetVineyard(ctx context.Context, id uint64) (*VineyardInfo, error) {
	var out []interface{}
	err := b.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getVineyard", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, wrapCall("getVineyard", err)
	}
	if len(out) < 7 {
		return nil, fmt.Errorf("getVineyard: short tuple (%d fields): %w", len(out), ErrRemoteCall)
	}
	return &VineyardInfo{
		ID:           out[0].(*big.Int).Uint64(),
		Name:         out[1].(string),
		Owner:        out[2].(string),
		GrapeVariety: out[3].(string),
		Latitude:     out[4].(string),
		Longitude:    out[5].(string),
		RegisteredAt: time.Unix(out[6].(*big.Int).Int64(), 0).UTC(),
	}, nil
}

// GetProcess fetches and reshapes the getProcess tuple
func (b *Binding) GetProcess(ctx context.Context, id uint64) (*ProcessInfo, error) {
	var out []interface{}
	err := b.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getProcess", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, wrapCall("getProcess", err)
	}
	if len(out) < 8 {
		return nil, fmt.Errorf("getProcess: short tuple (%d fields): %w", len(out), ErrRemoteCall)
	}
	return &ProcessInfo{
		ID:          out[0].(*big.Int).Uint64(),
		VineyardID:  out[1].(*big.Int).Uint64(),
		Title:       out[2].(string),
		Description: out[3].(string),
		FileName:    out[4].(string),
		FileType:    out[5].(string),
		CreatedAt:   time.Unix(out[6].(*big.Int).Int64(), 0).UTC(),
		CreatedBy:   out[7].(common.Address).Hex(),
	}, nil
}

// GetProcessCID fetches the IPFS content identifier of a process document
func (b *Binding) GetProcessCID(ctx context.Context, id uint64) (string, error) {
	var out []interface{}
	err := b.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getProcessIPFSCid", new(big.Int).SetUint64(id))
	if err != nil {
		return "", wrapCall("getProcessIPFSCid", err)
	}
	if len(out) < 1 {
		return "", fmt.Errorf("getProcessIPFSCid: empty result: %w", ErrRemoteCall)
	}
	return out[0].(string), nil
}

// RegisterVineyard submits a registration and waits for it to be mined.
// The returned id is parsed from the VineyardRegistered event.
func (b *Binding) RegisterVineyard(ctx context.Context, opts *bind.TransactOpts, in RegisterVineyardInput) (*WriteResult, error) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	count, err := b.VineyardCount(ctx)
	if err != nil {
		return nil, err
	}
	candidate := new(big.Int).SetUint64(count + 1)

	tx, err := b.contract.Transact(opts, "registerVineyard",
		candidate, in.Name, in.Owner, in.GrapeVariety, in.Latitude, in.Longitude)
	if err != nil {
		return nil, wrapCall("registerVineyard", err)
	}
	return b.waitAssigned(ctx, tx, EventVineyardRegistered)
}

// AddProcess verifies the referenced vineyard exists, then submits the
// process record and waits for it to be mined. The existence check runs
// before any transaction so an orphaned reference never consumes gas.
func (b *Binding) AddProcess(ctx context.Context, opts *bind.TransactOpts, in AddProcessInput) (*WriteResult, error) {
	exists, err := b.VineyardExists(ctx, in.VineyardID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("vineyard %d: %w", in.VineyardID, ErrVineyardNotFound)
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	count, err := b.ProcessCount(ctx)
	if err != nil {
		return nil, err
	}
	candidate := new(big.Int).SetUint64(count + 1)

	tx, err := b.contract.Transact(opts, "addProcess",
		candidate, new(big.Int).SetUint64(in.VineyardID),
		in.Title, in.Description, in.FileName, in.FileType, in.IPFSCid)
	if err != nil {
		return nil, wrapCall("addProcess", err)
	}
	return b.waitAssigned(ctx, tx, EventProcessAdded)
}

// waitAssigned waits for the transaction receipt and extracts the id the
// contract assigned from the named event.
func (b *Binding) waitAssigned(ctx context.Context, tx *types.Transaction, event string) (*WriteResult, error) {
	receipt, err := bind.WaitMined(ctx, b.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted: %w", tx.Hash().Hex(), ErrRemoteCall)
	}

	id, err := b.assignedID(receipt.Logs, event)
	if err != nil {
		return nil, err
	}
	return &WriteResult{
		ID:          id,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

// assignedID finds the first matching event in the receipt logs and returns
// its indexed record id.
func (b *Binding) assignedID(logs []*types.Log, event string) (uint64, error) {
	eventID := b.abi.Events[event].ID
	for _, l := range logs {
		if l.Address != b.address || len(l.Topics) < 2 || l.Topics[0] != eventID {
			continue
		}
		return new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64(), nil
	}
	return 0, fmt.Errorf("receipt has no %s event: %w", event, ErrRemoteCall)
}

func (b *Binding) callCount(ctx context.Context, method string) (uint64, error) {
	var out []interface{}
	err := b.contract.Call(&bind.CallOpts{Context: ctx}, &out, method)
	if err != nil {
		return 0, wrapCall(method, err)
	}
	if len(out) < 1 {
		return 0, fmt.Errorf("%s: empty result: %w", method, ErrRemoteCall)
	}
	return out[0].(*big.Int).Uint64(), nil
}

func (b *Binding) callExists(ctx context.Context, method string, id uint64) (bool, error) {
	var out []interface{}
	err := b.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, new(big.Int).SetUint64(id))
	if err != nil {
		return false, wrapCall(method, err)
	}
	if len(out) < 1 {
		return false, fmt.Errorf("%s: empty result: %w", method, ErrRemoteCall)
	}
	return out[0].(bool), nil
}
