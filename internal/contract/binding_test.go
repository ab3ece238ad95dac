package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/winetrace/winetracego/internal/chain"
	"github.com/winetrace/winetracego/internal/config"
)

const testContractAddr = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

const testABI = `[
  {"type":"function","name":"vineyardCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"processCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"vineyardExistsCheck","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"processExists","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getVineyard","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[
    {"name":"id","type":"uint256"},{"name":"name","type":"string"},{"name":"owner","type":"string"},
    {"name":"grapeVariety","type":"string"},{"name":"lat","type":"string"},{"name":"lng","type":"string"},
    {"name":"timestamp","type":"uint256"}]},
  {"type":"function","name":"getProcess","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[
    {"name":"id","type":"uint256"},{"name":"vineyardId","type":"uint256"},{"name":"title","type":"string"},
    {"name":"description","type":"string"},{"name":"fileName","type":"string"},{"name":"fileType","type":"string"},
    {"name":"timestamp","type":"uint256"},{"name":"createdBy","type":"address"}]},
  {"type":"function","name":"getProcessIPFSCid","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"registerVineyard","stateMutability":"nonpayable","inputs":[
    {"name":"id","type":"uint256"},{"name":"name","type":"string"},{"name":"owner","type":"string"},
    {"name":"grapeVariety","type":"string"},{"name":"lat","type":"string"},{"name":"lng","type":"string"}],"outputs":[]},
  {"type":"function","name":"addProcess","stateMutability":"nonpayable","inputs":[
    {"name":"id","type":"uint256"},{"name":"vineyardId","type":"uint256"},{"name":"title","type":"string"},
    {"name":"description","type":"string"},{"name":"fileName","type":"string"},{"name":"fileType","type":"string"},
    {"name":"ipfsCid","type":"string"}],"outputs":[]},
  {"type":"event","name":"VineyardRegistered","anonymous":false,"inputs":[{"name":"vineyardId","type":"uint256","indexed":true}]},
  {"type":"event","name":"ProcessAdded","anonymous":false,"inputs":[{"name":"processId","type":"uint256","indexed":true}]}
]`

// fakeBackend answers contract calls and log filters from scripted responses.
type fakeBackend struct {
	call       func(msg ethereum.CallMsg) ([]byte, error)
	filterLogs func(q ethereum.FilterQuery) ([]types.Log, error)
}

func (f *fakeBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{1}, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if f.call == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return f.call(msg)
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(42)}, nil
}

func (f *fakeBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{1}, nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return fmt.Errorf("sends not supported")
}

func (f *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if f.filterLogs == nil {
		return nil, nil
	}
	return f.filterLogs(q)
}

func (f *fakeBackend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, fmt.Errorf("subscriptions not supported")
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return nil, fmt.Errorf("receipts not supported")
}

func parsedTestABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(testABI))
	if err != nil {
		t.Fatalf("parse test ABI: %v", err)
	}
	return parsed
}

func newTestBinding(t *testing.T, backend chain.Backend) *Binding {
	t.Helper()
	b, err := NewBinding(&config.ContractConfig{
		Address: testContractAddr,
		ABI:     json.RawMessage(testABI),
	}, backend)
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	return b
}

// packOutputs encodes a scripted view-call result
func packOutputs(t *testing.T, parsed abi.ABI, method string, values ...interface{}) []byte {
	t.Helper()
	out, err := parsed.Methods[method].Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s outputs: %v", method, err)
	}
	return out
}

func methodID(parsed abi.ABI, method string) [4]byte {
	var id [4]byte
	copy(id[:], parsed.Methods[method].ID)
	return id
}

func TestNewBindingRejectsNilBackend(t *testing.T) {
	_, err := NewBinding(&config.ContractConfig{
		Address: testContractAddr,
		ABI:     json.RawMessage(testABI),
	}, nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestNewBindingRejectsABIWithoutEvents(t *testing.T) {
	noEvents := `[{"type":"function","name":"vineyardCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}]`
	_, err := NewBinding(&config.ContractConfig{
		Address: testContractAddr,
		ABI:     json.RawMessage(noEvents),
	}, &fakeBackend{})
	if err == nil {
		t.Fatal("expected error for ABI without record events")
	}
}

func TestVineyardCount(t *testing.T) {
	parsed := parsedTestABI(t)
	backend := &fakeBackend{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			return packOutputs(t, parsed, "vineyardCount", big.NewInt(3)), nil
		},
	}
	b := newTestBinding(t, backend)

	count, err := b.VineyardCount(context.Background())
	if err != nil {
		t.Fatalf("VineyardCount: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestGetVineyard(t *testing.T) {
	parsed := parsedTestABI(t)
	backend := &fakeBackend{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			return packOutputs(t, parsed, "getVineyard",
				big.NewInt(1), "Tenuta Rossi", "Maria Rossi", "Sangiovese",
				"43.7696", "11.2558", big.NewInt(1700000000)), nil
		},
	}
	b := newTestBinding(t, backend)

	v, err := b.GetVineyard(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetVineyard: %v", err)
	}
	if v.ID != 1 || v.Name != "Tenuta Rossi" || v.Owner != "Maria Rossi" {
		t.Errorf("vineyard = %+v", v)
	}
	if v.GrapeVariety != "Sangiovese" || v.Latitude != "43.7696" || v.Longitude != "11.2558" {
		t.Errorf("vineyard = %+v", v)
	}
	if v.RegisteredAt.Unix() != 1700000000 {
		t.Errorf("registered at = %v", v.RegisteredAt)
	}
}

func TestGetProcess(t *testing.T) {
	parsed := parsedTestABI(t)
	creator := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	backend := &fakeBackend{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			return packOutputs(t, parsed, "getProcess",
				big.NewInt(2), big.NewInt(1), "Harvest", "Hand picked",
				"harvest.pdf", "application/pdf", big.NewInt(1700000100), creator), nil
		},
	}
	b := newTestBinding(t, backend)

	p, err := b.GetProcess(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetProcess: %v", err)
	}
	if p.ID != 2 || p.VineyardID != 1 || p.Title != "Harvest" {
		t.Errorf("process = %+v", p)
	}
	if p.CreatedBy != creator.Hex() {
		t.Errorf("created by = %s, want %s", p.CreatedBy, creator.Hex())
	}
}

func TestGetProcessCID(t *testing.T) {
	parsed := parsedTestABI(t)
	backend := &fakeBackend{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			return packOutputs(t, parsed, "getProcessIPFSCid", "QmTestCid123"), nil
		},
	}
	b := newTestBinding(t, backend)

	cid, err := b.GetProcessCID(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetProcessCID: %v", err)
	}
	if cid != "QmTestCid123" {
		t.Errorf("cid = %q", cid)
	}
}

func TestAddProcessRejectsUnknownVineyard(t *testing.T) {
	parsed := parsedTestABI(t)
	existsID := methodID(parsed, "vineyardExistsCheck")
	backend := &fakeBackend{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			var id [4]byte
			copy(id[:], msg.Data[:4])
			if id == existsID {
				return packOutputs(t, parsed, "vineyardExistsCheck", false), nil
			}
			t.Errorf("unexpected call %x after failed existence check", id)
			return nil, fmt.Errorf("unexpected call")
		},
	}
	b := newTestBinding(t, backend)

	_, err := b.AddProcess(context.Background(), &bind.TransactOpts{}, AddProcessInput{
		VineyardID: 99,
		Title:      "Harvest",
	})
	if !errors.Is(err, ErrVineyardNotFound) {
		t.Fatalf("err = %v, want ErrVineyardNotFound", err)
	}
}

func TestHeadBlock(t *testing.T) {
	b := newTestBinding(t, &fakeBackend{})
	head, err := b.HeadBlock(context.Background())
	if err != nil {
		t.Fatalf("HeadBlock: %v", err)
	}
	if head != 42 {
		t.Errorf("head = %d, want 42", head)
	}
}

func TestFilterRecordEvents(t *testing.T) {
	parsed := parsedTestABI(t)
	addr := common.HexToAddress(testContractAddr)
	vineyardTopic := parsed.Events[EventVineyardRegistered].ID
	processTopic := parsed.Events[EventProcessAdded].ID

	backend := &fakeBackend{
		filterLogs: func(q ethereum.FilterQuery) ([]types.Log, error) {
			if q.FromBlock.Uint64() != 10 || q.ToBlock.Uint64() != 20 {
				t.Errorf("range = %s..%s, want 10..20", q.FromBlock, q.ToBlock)
			}
			return []types.Log{
				{Address: addr, Topics: []common.Hash{vineyardTopic, common.BigToHash(big.NewInt(1))}, BlockNumber: 11, Index: 0},
				{Address: addr, Topics: []common.Hash{processTopic, common.BigToHash(big.NewInt(7))}, BlockNumber: 12, Index: 1},
				{Address: addr, Topics: []common.Hash{vineyardTopic}, BlockNumber: 13},                                             // malformed, no id topic
				{Address: addr, Topics: []common.Hash{common.HexToHash("0xdead"), common.BigToHash(big.NewInt(9))}, BlockNumber: 14}, // foreign event
			}, nil
		},
	}
	b := newTestBinding(t, backend)

	events, err := b.FilterRecordEvents(context.Background(), 10, 20)
	if err != nil {
		t.Fatalf("FilterRecordEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Name != EventVineyardRegistered || events[0].RecordID != 1 || events[0].BlockNumber != 11 {
		t.Errorf("event[0] = %+v", events[0])
	}
	if events[1].Name != EventProcessAdded || events[1].RecordID != 7 || events[1].BlockNumber != 12 {
		t.Errorf("event[1] = %+v", events[1])
	}
}

func TestAssignedIDFromReceiptLogs(t *testing.T) {
	b := newTestBinding(t, &fakeBackend{})
	addr := common.HexToAddress(testContractAddr)
	eventID := b.abi.Events[EventVineyardRegistered].ID

	logs := []*types.Log{
		{Address: common.HexToAddress("0x01"), Topics: []common.Hash{eventID, common.BigToHash(big.NewInt(5))}}, // wrong contract
		{Address: addr, Topics: []common.Hash{eventID, common.BigToHash(big.NewInt(4))}},
	}
	id, err := b.assignedID(logs, EventVineyardRegistered)
	if err != nil {
		t.Fatalf("assignedID: %v", err)
	}
	if id != 4 {
		t.Errorf("id = %d, want 4 (from this contract's event, not a foreign one)", id)
	}
}

func TestAssignedIDMissingEvent(t *testing.T) {
	b := newTestBinding(t, &fakeBackend{})
	_, err := b.assignedID(nil, EventVineyardRegistered)
	if !errors.Is(err, ErrRemoteCall) {
		t.Fatalf("err = %v, want ErrRemoteCall", err)
	}
}

func TestWrapCallClassification(t *testing.T) {
	if wrapCall("op", nil) != nil {
		t.Error("nil error must stay nil")
	}

	err := wrapCall("op", fmt.Errorf("authentication needed: password or unlock"))
	if !errors.Is(err, chain.ErrUserRejected) {
		t.Errorf("unlock failure classified as %v, want ErrUserRejected", err)
	}

	err = wrapCall("op", fmt.Errorf("could not decrypt key with given password"))
	if !errors.Is(err, chain.ErrUserRejected) {
		t.Errorf("decrypt failure classified as %v, want ErrUserRejected", err)
	}

	err = wrapCall("op", fmt.Errorf("execution reverted"))
	if !errors.Is(err, ErrRemoteCall) {
		t.Errorf("revert classified as %v, want ErrRemoteCall", err)
	}

	err = wrapCall("op", fmt.Errorf("wrapped: %w", chain.ErrUserRejected))
	if !errors.Is(err, chain.ErrUserRejected) {
		t.Errorf("pass-through lost the rejection: %v", err)
	}
}
