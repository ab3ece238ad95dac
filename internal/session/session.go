package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/winetrace/winetracego/internal/chain"
	"github.com/winetrace/winetracego/internal/contract"
)

// State is the session lifecycle state
type State int

const (
	Uninitialized State = iota
	Connecting
	Connected
	Disconnected
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session errors
var (
	// ErrConnectInProgress: a Connect call is already in flight
	ErrConnectInProgress = errors.New("connect already in progress")
	// ErrNotConnected: a facade access was attempted without a live session
	ErrNotConnected = errors.New("session not connected")
)

// Event is pushed to subscribers on every session change
type Event struct {
	State   State
	Account common.Address
	ChainID *big.Int
	Err     error
}

// Binder builds a contract handle against the provider's current endpoint
type Binder func(backend chain.Backend) (*contract.Binding, error)

// Session owns the single logical connection to a signing capability and the
// bound contract handle. All dependents observe it through Subscribe; nothing
// reads provider state directly.
type Session struct {
	mu sync.Mutex

	provider chain.Provider
	expected chain.Descriptor
	binder   Binder

	state    State
	account  common.Address
	chainID  *big.Int
	contract *contract.Binding

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	unsubscribe func()
}

// New creates a session over the given provider. The provider may be nil
// (no capability detected); Connect then fails with ErrProviderUnavailable.
func New(provider chain.Provider, expected chain.Descriptor, binder Binder) *Session {
	s := &Session{
		provider: provider,
		expected: expected,
		binder:   binder,
		state:    Uninitialized,
		subs:     make(map[int]func(Event)),
	}
	if provider != nil {
		s.unsubscribe = provider.Subscribe(s)
	}
	return s
}

// Connect establishes the session: request account authorization, ensure the
// expected chain (switching or adding the network as needed), and bind the
// contract handle. Idempotent while already connected. At most one Connect is
// in flight; concurrent calls fail with ErrConnectInProgress.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.provider == nil {
		s.mu.Unlock()
		return chain.ErrProviderUnavailable
	}
	switch s.state {
	case Connected:
		s.mu.Unlock()
		return nil
	case Connecting:
		s.mu.Unlock()
		return ErrConnectInProgress
	}
	s.state = Connecting
	s.mu.Unlock()
	s.emit(Event{State: Connecting})

	account, chainID, binding, err := s.establish(ctx, true)

	s.mu.Lock()
	if err != nil {
		s.state = Disconnected
		s.account = common.Address{}
		s.chainID = nil
		s.contract = nil
		s.mu.Unlock()
		s.emit(Event{State: Disconnected, Err: err})
		return err
	}
	s.state = Connected
	s.account = account
	s.chainID = chainID
	s.contract = binding
	s.mu.Unlock()
	s.emit(Event{State: Connected, Account: account, ChainID: chainID})

	log.Printf("✅ Session connected: account %s on chain %s", account.Hex(), chainID)
	return nil
}

// Disconnect clears all session fields. Always succeeds, idempotent.
func (s *Session) Disconnect() {
	s.mu.Lock()
	already := s.state == Disconnected
	s.state = Disconnected
	s.account = common.Address{}
	s.chainID = nil
	s.contract = nil
	s.mu.Unlock()

	if !already {
		s.emit(Event{State: Disconnected})
	}
}

// AutoReconnect silently rebinds a previously authorized session at startup.
// Failures are logged, never escalated; this path must not block startup.
func (s *Session) AutoReconnect(ctx context.Context) {
	s.mu.Lock()
	if s.provider == nil || s.state == Connected || s.state == Connecting {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	accounts, err := s.provider.Accounts(ctx)
	if err != nil {
		log.Printf("⚠️ Auto-reconnect: account query failed: %v", err)
		return
	}
	if len(accounts) == 0 {
		return
	}

	account, chainID, binding, err := s.establish(ctx, false)
	if err != nil {
		log.Printf("⚠️ Auto-reconnect failed: %v", err)
		return
	}

	s.mu.Lock()
	s.state = Connected
	s.account = account
	s.chainID = chainID
	s.contract = binding
	s.mu.Unlock()
	s.emit(Event{State: Connected, Account: account, ChainID: chainID})

	log.Printf("🔄 Session auto-reconnected: %s", account.Hex())
}

// Close detaches the session from provider notifications
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// establish runs the shared connect/auto-reconnect binding sequence.
func (s *Session) establish(ctx context.Context, prompt bool) (common.Address, *big.Int, *contract.Binding, error) {
	var (
		accounts []common.Address
		err      error
	)
	if prompt {
		accounts, err = s.provider.RequestAccounts(ctx)
	} else {
		accounts, err = s.provider.Accounts(ctx)
	}
	if err != nil {
		return common.Address{}, nil, nil, fmt.Errorf("account authorization: %w", err)
	}
	if len(accounts) == 0 {
		return common.Address{}, nil, nil, fmt.Errorf("no authorized accounts: %w", chain.ErrUserRejected)
	}

	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		return common.Address{}, nil, nil, fmt.Errorf("chain id query: %w", err)
	}

	if chainID.Cmp(s.expected.ChainID) != 0 {
		if err := s.ensureExpectedChain(ctx); err != nil {
			return common.Address{}, nil, nil, err
		}
		chainID = new(big.Int).Set(s.expected.ChainID)
	}

	binding, err := s.binder(s.provider.Backend())
	if err != nil {
		return common.Address{}, nil, nil, fmt.Errorf("contract binding: %w", err)
	}
	return accounts[0], chainID, binding, nil
}

// ensureExpectedChain asks the provider to switch, registering the expected
// network first when the provider does not know it.
func (s *Session) ensureExpectedChain(ctx context.Context) error {
	err := s.provider.SwitchChain(ctx, s.expected.ChainID)
	if errors.Is(err, chain.ErrUnknownChain) {
		if addErr := s.provider.AddChain(ctx, s.expected); addErr != nil {
			return fmt.Errorf("add network %s: %w", s.expected.Name, addErr)
		}
		err = s.provider.SwitchChain(ctx, s.expected.ChainID)
	}
	if err != nil {
		return fmt.Errorf("switch to chain %s: %w", s.expected.ChainID, err)
	}
	return nil
}

// AccountsChanged handles the provider's asynchronous account notification.
// An empty list is a disconnect; otherwise the active account is updated in
// place and the contract handle is kept.
func (s *Session) AccountsChanged(accounts []common.Address) {
	if len(accounts) == 0 {
		s.Disconnect()
		return
	}

	s.mu.Lock()
	s.account = accounts[0]
	state := s.state
	chainID := s.chainID
	s.mu.Unlock()

	s.emit(Event{State: state, Account: accounts[0], ChainID: chainID})
}

// ChainChanged handles a network switch. The cached endpoint state is no
// longer trustworthy, so the whole session is invalidated and dependents
// must reconnect explicitly.
func (s *Session) ChainChanged(chainID *big.Int) {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return
	}
	if s.chainID != nil && chainID != nil && s.chainID.Cmp(chainID) == 0 {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	log.Printf("⚠️ Chain changed to %s, invalidating session", chainID)
	s.Disconnect()
}

// Contract returns the bound contract handle. Rejected before any network
// request when the session is not connected.
func (s *Session) Contract() (*contract.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connected || s.contract == nil {
		return nil, ErrNotConnected
	}
	return s.contract, nil
}

// TransactOpts returns signing options for the active account
func (s *Session) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	account := s.account
	s.mu.Unlock()
	return s.provider.TransactOpts(ctx, account)
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Account returns the active account
func (s *Session) Account() common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// ChainID returns the bound chain id, nil while not connected
func (s *Session) ChainID() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chainID == nil {
		return nil
	}
	return new(big.Int).Set(s.chainID)
}

// Subscribe registers a change observer and returns an unsubscribe function
func (s *Session) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Session) emit(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
