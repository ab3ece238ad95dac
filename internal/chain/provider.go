package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Wallet capability errors. Page-level handlers map these to user-facing
// notifications; nothing below the handler boundary retries.
var (
	// ErrProviderUnavailable: no signing capability is present
	ErrProviderUnavailable = errors.New("wallet provider unavailable")
	// ErrUserRejected: the key holder declined an account or network prompt
	ErrUserRejected = errors.New("request rejected by user")
	// ErrUnknownChain: the requested chain is not registered with the wallet
	ErrUnknownChain = errors.New("chain not known to wallet")
	// ErrChainMismatch: the endpoint reports a different chain id than requested
	ErrChainMismatch = errors.New("endpoint chain id mismatch")
)

// Descriptor describes a network the wallet can be asked to add or switch to.
// Mirrors the wallet_addEthereumChain parameter set.
type Descriptor struct {
	ChainID          *big.Int
	Name             string
	RPCURL           string
	CurrencyName     string
	CurrencySymbol   string
	CurrencyDecimals int
}

// HardhatLocal is the fixed descriptor used when the expected development
// network is unknown to the wallet.
var HardhatLocal = Descriptor{
	ChainID:          big.NewInt(31337),
	Name:             "Hardhat Localhost",
	RPCURL:           "http://127.0.0.1:8545",
	CurrencyName:     "Ethereum",
	CurrencySymbol:   "ETH",
	CurrencyDecimals: 18,
}

// Backend is what a bound contract needs from the provider: calls,
// transactions, log filtering and receipt lookups.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Listener receives out-of-band wallet notifications. Callbacks arrive on the
// provider's notification goroutine.
type Listener interface {
	AccountsChanged(accounts []common.Address)
	ChainChanged(chainID *big.Int)
}

// Provider is the signing capability boundary. The session state machine is
// written against this interface; the keystore implementation is the default
// and tests substitute a fake.
type Provider interface {
	// RequestAccounts asks for account authorization, prompting (unlocking)
	// as needed. Fails with ErrUserRejected when authorization is declined.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// Accounts silently returns the already-authorized accounts. Never prompts.
	Accounts(ctx context.Context) ([]common.Address, error)

	// ChainID reports the chain of the currently connected endpoint.
	ChainID(ctx context.Context) (*big.Int, error)

	// SwitchChain connects to the endpoint registered for the given chain id.
	// Fails with ErrUnknownChain when no such network is registered and with
	// ErrUserRejected when the key holder declines the switch.
	SwitchChain(ctx context.Context, chainID *big.Int) error

	// AddChain registers a network descriptor so SwitchChain can reach it.
	AddChain(ctx context.Context, desc Descriptor) error

	// TransactOpts returns signing options bound to the given account and the
	// current chain.
	TransactOpts(ctx context.Context, account common.Address) (*bind.TransactOpts, error)

	// Backend exposes the current endpoint for contract binding.
	Backend() Backend

	// Subscribe registers a listener for wallet notifications and returns an
	// unsubscribe function.
	Subscribe(l Listener) func()
}
