package session

import (
	"context"
	"errors"
	"math/big"
	"runtime"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/winetrace/winetracego/internal/chain"
	"github.com/winetrace/winetracego/internal/contract"
)

var (
	testAccount  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	otherAccount = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// fakeProvider drives the session through scripted wallet behavior.
type fakeProvider struct {
	mu sync.Mutex

	accounts   []common.Address
	authorized bool
	chainID    *big.Int
	networks   map[uint64]bool

	rejectRequest bool
	requestGate   chan struct{}

	switchCalls []uint64
	addCalls    []chain.Descriptor
	listener    chain.Listener
}

func newFakeProvider(chainID int64) *fakeProvider {
	return &fakeProvider{
		accounts: []common.Address{testAccount},
		chainID:  big.NewInt(chainID),
		networks: map[uint64]bool{uint64(chainID): true},
	}
}

func (f *fakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if f.requestGate != nil {
		<-f.requestGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectRequest {
		return nil, chain.ErrUserRejected
	}
	f.authorized = true
	return f.accounts, nil
}

func (f *fakeProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authorized {
		return nil, nil
	}
	return f.accounts, nil
}

func (f *fakeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeProvider) SwitchChain(ctx context.Context, chainID *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switchCalls = append(f.switchCalls, chainID.Uint64())
	if !f.networks[chainID.Uint64()] {
		return chain.ErrUnknownChain
	}
	f.chainID = new(big.Int).Set(chainID)
	return nil
}

func (f *fakeProvider) AddChain(ctx context.Context, desc chain.Descriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls = append(f.addCalls, desc)
	f.networks[desc.ChainID.Uint64()] = true
	return nil
}

func (f *fakeProvider) TransactOpts(ctx context.Context, account common.Address) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: account, Context: ctx}, nil
}

func (f *fakeProvider) Backend() chain.Backend { return nil }

func (f *fakeProvider) Subscribe(l chain.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listener = nil
	}
}

func testBinder(chain.Backend) (*contract.Binding, error) {
	return &contract.Binding{}, nil
}

func newTestSession(p chain.Provider) *Session {
	expected := chain.HardhatLocal
	return New(p, expected, testBinder)
}

func TestConnectHappyPath(t *testing.T) {
	provider := newFakeProvider(31337)
	s := newTestSession(provider)
	defer s.Close()

	var events []Event
	unsub := s.Subscribe(func(ev Event) { events = append(events, ev) })
	defer unsub()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if s.State() != Connected {
		t.Errorf("state = %v, want Connected", s.State())
	}
	if s.Account() != testAccount {
		t.Errorf("account = %s, want %s", s.Account().Hex(), testAccount.Hex())
	}
	if s.ChainID().Int64() != 31337 {
		t.Errorf("chain id = %s, want 31337", s.ChainID())
	}
	if _, err := s.Contract(); err != nil {
		t.Errorf("Contract() after connect: %v", err)
	}

	if len(events) != 2 || events[0].State != Connecting || events[1].State != Connected {
		t.Errorf("event sequence = %+v, want Connecting then Connected", events)
	}
}

func TestConnectWithoutProvider(t *testing.T) {
	s := newTestSession(nil)
	defer s.Close()

	err := s.Connect(context.Background())
	if !errors.Is(err, chain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	if s.State() != Uninitialized {
		t.Errorf("state = %v, want Uninitialized (failed detection must not change state)", s.State())
	}
}

func TestConnectIdempotentWhileConnected(t *testing.T) {
	provider := newFakeProvider(31337)
	s := newTestSession(provider)
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("first Connect: %v", err)
	}

	var events int
	unsub := s.Subscribe(func(Event) { events++ })
	defer unsub()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if events != 0 {
		t.Errorf("second Connect emitted %d events, want 0", events)
	}
}

func TestConcurrentConnectRejected(t *testing.T) {
	provider := newFakeProvider(31337)
	provider.requestGate = make(chan struct{})
	s := newTestSession(provider)
	defer s.Close()

	done := make(chan error, 1)
	go func() { done <- s.Connect(context.Background()) }()

	// wait for the first call to reach Connecting
	for s.State() != Connecting {
		runtime.Gosched()
	}

	if err := s.Connect(context.Background()); !errors.Is(err, ErrConnectInProgress) {
		t.Errorf("second Connect err = %v, want ErrConnectInProgress", err)
	}

	close(provider.requestGate)
	if err := <-done; err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	if s.State() != Connected {
		t.Errorf("state = %v, want Connected", s.State())
	}
}

func TestConnectRejectedByUser(t *testing.T) {
	provider := newFakeProvider(31337)
	provider.rejectRequest = true
	s := newTestSession(provider)
	defer s.Close()

	var last Event
	unsub := s.Subscribe(func(ev Event) { last = ev })
	defer unsub()

	err := s.Connect(context.Background())
	if !errors.Is(err, chain.ErrUserRejected) {
		t.Fatalf("err = %v, want ErrUserRejected", err)
	}
	if s.State() != Disconnected {
		t.Errorf("state = %v, want Disconnected", s.State())
	}
	if last.State != Disconnected || last.Err == nil {
		t.Errorf("last event = %+v, want Disconnected with error", last)
	}
}

func TestConnectSwitchesToExpectedChain(t *testing.T) {
	// wallet starts on a foreign chain and does not know the expected one
	provider := newFakeProvider(1337)
	delete(provider.networks, 31337)
	s := newTestSession(provider)
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if s.ChainID().Int64() != 31337 {
		t.Errorf("chain id = %s, want 31337", s.ChainID())
	}
	// first switch fails unknown, network gets added, second switch lands
	if len(provider.switchCalls) != 2 {
		t.Fatalf("switch calls = %v, want two attempts", provider.switchCalls)
	}
	if len(provider.addCalls) != 1 {
		t.Fatalf("add calls = %d, want 1", len(provider.addCalls))
	}
	added := provider.addCalls[0]
	if added.ChainID.Int64() != 31337 || added.RPCURL == "" || added.Name == "" {
		t.Errorf("added descriptor incomplete: %+v", added)
	}
}

func TestAccountsChangedUpdatesInPlace(t *testing.T) {
	provider := newFakeProvider(31337)
	s := newTestSession(provider)
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	provider.listener.AccountsChanged([]common.Address{otherAccount})

	if s.State() != Connected {
		t.Errorf("state = %v, want Connected (account switch keeps the session)", s.State())
	}
	if s.Account() != otherAccount {
		t.Errorf("account = %s, want %s", s.Account().Hex(), otherAccount.Hex())
	}
	if _, err := s.Contract(); err != nil {
		t.Errorf("Contract() after account switch: %v", err)
	}
}

func TestAccountsChangedEmptyDisconnects(t *testing.T) {
	provider := newFakeProvider(31337)
	s := newTestSession(provider)
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	provider.listener.AccountsChanged(nil)

	if s.State() != Disconnected {
		t.Errorf("state = %v, want Disconnected", s.State())
	}
	if s.Account() != (common.Address{}) {
		t.Errorf("account not cleared: %s", s.Account().Hex())
	}
	if _, err := s.Contract(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Contract() err = %v, want ErrNotConnected", err)
	}
}

func TestChainChangedInvalidatesSession(t *testing.T) {
	provider := newFakeProvider(31337)
	s := newTestSession(provider)
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	provider.listener.ChainChanged(big.NewInt(1))

	if s.State() != Disconnected {
		t.Errorf("state = %v, want Disconnected", s.State())
	}
	if s.ChainID() != nil {
		t.Errorf("chain id not cleared: %s", s.ChainID())
	}
}

func TestChainChangedSameChainIsNoop(t *testing.T) {
	provider := newFakeProvider(31337)
	s := newTestSession(provider)
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	var events int
	unsub := s.Subscribe(func(Event) { events++ })
	defer unsub()

	provider.listener.ChainChanged(big.NewInt(31337))

	if s.State() != Connected {
		t.Errorf("state = %v, want Connected", s.State())
	}
	if events != 0 {
		t.Errorf("emitted %d events for a same-chain notification, want 0", events)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	provider := newFakeProvider(31337)
	s := newTestSession(provider)
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	s.Disconnect()

	var events int
	unsub := s.Subscribe(func(Event) { events++ })
	defer unsub()

	s.Disconnect()
	if events != 0 {
		t.Errorf("repeated Disconnect emitted %d events, want 0", events)
	}
	if _, err := s.TransactOpts(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("TransactOpts err = %v, want ErrNotConnected", err)
	}
}

func TestAutoReconnectWithAuthorizedAccounts(t *testing.T) {
	provider := newFakeProvider(31337)
	provider.authorized = true
	s := newTestSession(provider)
	defer s.Close()

	s.AutoReconnect(context.Background())

	if s.State() != Connected {
		t.Errorf("state = %v, want Connected", s.State())
	}
	if s.Account() != testAccount {
		t.Errorf("account = %s, want %s", s.Account().Hex(), testAccount.Hex())
	}
}

func TestAutoReconnectWithoutAuthorizationIsSilent(t *testing.T) {
	provider := newFakeProvider(31337)
	s := newTestSession(provider)
	defer s.Close()

	s.AutoReconnect(context.Background())

	if s.State() != Uninitialized {
		t.Errorf("state = %v, want Uninitialized (no prompt on startup)", s.State())
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	provider := newFakeProvider(31337)
	s := newTestSession(provider)
	defer s.Close()

	var events int
	unsub := s.Subscribe(func(Event) { events++ })
	unsub()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if events != 0 {
		t.Errorf("unsubscribed observer received %d events", events)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Uninitialized: "uninitialized",
		Connecting:    "connecting",
		Connected:     "connected",
		Disconnected:  "disconnected",
		State(99):     "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
