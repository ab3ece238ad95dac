package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
)

// NewReadBackend dials an RPC endpoint without any signing capability.
// Used by the indexer and inspection tools, which only call and filter.
func NewReadBackend(ctx context.Context, rpcURL string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if _, err := client.ChainID(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return client, nil
}
