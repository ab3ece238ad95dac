package chain

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/winetrace/winetracego/internal/config"
)

// KeystoreProvider implements Provider on top of a geth-format keystore
// directory and a JSON-RPC endpoint. Account authorization is a keystore
// unlock with the configured passphrase; a missing or wrong passphrase is
// the headless equivalent of declining the wallet prompt.
type KeystoreProvider struct {
	mu         sync.Mutex
	ks         *keystore.KeyStore
	passphrase string

	networks map[uint64]Descriptor
	current  Descriptor
	client   *ethclient.Client

	listeners  map[int]Listener
	nextListen int

	walletSub  func()
	authorized bool
}

// NewKeystoreProvider builds a provider for the configured chain. Returns
// ErrProviderUnavailable when the keystore directory does not exist.
func NewKeystoreProvider(cfg config.ChainConfig) (*KeystoreProvider, error) {
	if _, err := os.Stat(cfg.KeystoreDir); err != nil {
		return nil, fmt.Errorf("keystore dir %s: %w", cfg.KeystoreDir, ErrProviderUnavailable)
	}

	expected := Descriptor{
		ChainID:          big.NewInt(cfg.ExpectedChainID),
		Name:             fmt.Sprintf("chain-%d", cfg.ExpectedChainID),
		RPCURL:           cfg.RPCURL,
		CurrencyName:     "Ethereum",
		CurrencySymbol:   "ETH",
		CurrencyDecimals: 18,
	}
	if cfg.ExpectedChainID == HardhatLocal.ChainID.Int64() {
		expected = HardhatLocal
		expected.RPCURL = cfg.RPCURL
	}

	p := &KeystoreProvider{
		ks:         keystore.NewKeyStore(cfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP),
		passphrase: cfg.Passphrase,
		networks:   map[uint64]Descriptor{expected.ChainID.Uint64(): expected},
		current:    expected,
		listeners:  make(map[int]Listener),
	}
	p.watchWallets()
	return p, nil
}

// RequestAccounts unlocks the keystore accounts with the configured
// passphrase. An empty or wrong passphrase maps to ErrUserRejected.
func (p *KeystoreProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	accts := p.ks.Accounts()
	if len(accts) == 0 {
		return nil, fmt.Errorf("keystore has no accounts: %w", ErrProviderUnavailable)
	}
	if p.passphrase == "" {
		return nil, fmt.Errorf("no keystore passphrase configured: %w", ErrUserRejected)
	}
	addrs := make([]common.Address, 0, len(accts))
	for _, acct := range accts {
		if err := p.ks.TimedUnlock(acct, p.passphrase, 0); err != nil {
			return nil, fmt.Errorf("unlock %s: %w", acct.Address.Hex(), ErrUserRejected)
		}
		addrs = append(addrs, acct.Address)
	}
	p.authorized = true
	return addrs, nil
}

// Accounts returns the already-authorized accounts without prompting.
func (p *KeystoreProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authorized {
		return nil, nil
	}
	accts := p.ks.Accounts()
	addrs := make([]common.Address, 0, len(accts))
	for _, acct := range accts {
		addrs = append(addrs, acct.Address)
	}
	return addrs, nil
}

// ChainID reports the chain id of the connected endpoint.
func (p *KeystoreProvider) ChainID(ctx context.Context) (*big.Int, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.ChainID(ctx)
}

// SwitchChain connects the provider to the endpoint registered for chainID.
func (p *KeystoreProvider) SwitchChain(ctx context.Context, chainID *big.Int) error {
	p.mu.Lock()
	desc, ok := p.networks[chainID.Uint64()]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("chain %s: %w", chainID, ErrUnknownChain)
	}

	client, err := ethclient.DialContext(ctx, desc.RPCURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", desc.RPCURL, err)
	}
	got, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("chain id query: %w", err)
	}
	if got.Cmp(chainID) != 0 {
		client.Close()
		return fmt.Errorf("endpoint %s reports chain %s, want %s: %w",
			desc.RPCURL, got, chainID, ErrChainMismatch)
	}

	p.mu.Lock()
	if p.client != nil {
		p.client.Close()
	}
	p.client = client
	p.current = desc
	p.mu.Unlock()

	p.notifyChainChanged(new(big.Int).Set(chainID))
	return nil
}

// AddChain registers a network descriptor
func (p *KeystoreProvider) AddChain(ctx context.Context, desc Descriptor) error {
	if desc.ChainID == nil || desc.RPCURL == "" {
		return fmt.Errorf("invalid chain descriptor")
	}
	p.mu.Lock()
	p.networks[desc.ChainID.Uint64()] = desc
	p.mu.Unlock()
	return nil
}

// TransactOpts returns keystore-backed signing options for the account.
func (p *KeystoreProvider) TransactOpts(ctx context.Context, account common.Address) (*bind.TransactOpts, error) {
	chainID, err := p.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(p.ks, accounts.Account{Address: account}, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor for %s: %w", account.Hex(), err)
	}
	opts.Context = ctx
	return opts, nil
}

// Backend exposes the current endpoint for contract binding
func (p *KeystoreProvider) Backend() Backend {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// Subscribe registers a wallet notification listener
func (p *KeystoreProvider) Subscribe(l Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextListen
	p.nextListen++
	p.listeners[id] = l
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// Close tears down the RPC connection and the keystore watcher
func (p *KeystoreProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.walletSub != nil {
		p.walletSub()
		p.walletSub = nil
	}
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}

func (p *KeystoreProvider) ensureClient(ctx context.Context) (*ethclient.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	client, err := ethclient.DialContext(ctx, p.current.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", p.current.RPCURL, err)
	}
	p.client = client
	return client, nil
}

// watchWallets translates keystore wallet events into accountsChanged
// notifications, the way a browser wallet pushes account switches.
func (p *KeystoreProvider) watchWallets() {
	sink := make(chan accounts.WalletEvent, 16)
	sub := p.ks.Subscribe(sink)

	done := make(chan struct{})
	p.walletSub = func() {
		sub.Unsubscribe()
		close(done)
	}

	go func() {
		for {
			select {
			case ev := <-sink:
				switch ev.Kind {
				case accounts.WalletArrived, accounts.WalletDropped:
					addrs, _ := p.Accounts(context.Background())
					p.notifyAccountsChanged(addrs)
				}
			case err := <-sub.Err():
				if err != nil {
					log.Printf("⚠️ Keystore watcher stopped: %v", err)
				}
				return
			case <-done:
				return
			}
		}
	}()
}

func (p *KeystoreProvider) notifyAccountsChanged(addrs []common.Address) {
	for _, l := range p.snapshotListeners() {
		l.AccountsChanged(addrs)
	}
}

func (p *KeystoreProvider) notifyChainChanged(chainID *big.Int) {
	for _, l := range p.snapshotListeners() {
		l.ChainChanged(chainID)
	}
}

func (p *KeystoreProvider) snapshotListeners() []Listener {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		out = append(out, l)
	}
	return out
}
