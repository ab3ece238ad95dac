package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/winetrace/winetracego/internal/chain"
	"github.com/winetrace/winetracego/internal/contract"
	"github.com/winetrace/winetracego/internal/ipfs"
	"github.com/winetrace/winetracego/internal/session"
)

// mapError converts the error taxonomy into one user-facing notification.
// Errors are never retried here; the caller keeps prior state and may retry
// manually.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, chain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "No wallet capability detected. Configure a keystore and passphrase."
	case errors.Is(err, chain.ErrUserRejected):
		return http.StatusForbidden, "Request was rejected by the key holder."
	case errors.Is(err, chain.ErrUnknownChain), errors.Is(err, chain.ErrChainMismatch):
		return http.StatusBadGateway, "Could not switch to the expected network."
	case errors.Is(err, session.ErrConnectInProgress):
		return http.StatusConflict, "A connection attempt is already in progress."
	case errors.Is(err, session.ErrNotConnected):
		return http.StatusConflict, "Wallet session is not connected."
	case errors.Is(err, contract.ErrVineyardNotFound):
		return http.StatusUnprocessableEntity, "Vineyard does not exist. Register the vineyard first."
	case errors.Is(err, ipfs.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, "IPFS daemon unreachable. Run: ipfs daemon"
	case errors.Is(err, contract.ErrRemoteCall):
		if strings.Contains(err.Error(), "insufficient funds") {
			return http.StatusPaymentRequired, "Not enough ETH to cover the gas fee."
		}
		return http.StatusBadGateway, "Contract call failed. Check the Hardhat node and record ids."
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func respondMapped(w http.ResponseWriter, err error) {
	status, message := mapError(err)
	respondError(w, status, message)
}
