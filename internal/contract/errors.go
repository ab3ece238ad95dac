package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/winetrace/winetracego/internal/chain"
)

var (
	// ErrRemoteCall: a contract read or write reverted
	ErrRemoteCall = errors.New("remote contract call failed")
	// ErrVineyardNotFound: a submission referenced a vineyard id the chain
	// does not know. Raised locally, before any transaction is sent.
	ErrVineyardNotFound = errors.New("vineyard does not exist")
	// ErrNotConnected: the facade was used without a bound backend
	ErrNotConnected = errors.New("contract not bound")
)

// wrapCall classifies an RPC error. Key-holder rejections pass through so the
// handler boundary can tell them apart from reverts.
func wrapCall(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, chain.ErrUserRejected) {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "authentication needed") || strings.Contains(msg, "could not decrypt") {
		return fmt.Errorf("%s: %w", op, chain.ErrUserRejected)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrRemoteCall, err)
}
