package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/winetrace/winetracego/internal/chain"
	"github.com/winetrace/winetracego/internal/config"
	"github.com/winetrace/winetracego/internal/contract"
)

// One-off: registers a test vineyard against the deployed contract.
// Usage: go run scripts/register_test_vineyard.go [name] [owner]
func main() {
	name := "Tenuta di Prova"
	owner := "Test Owner"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	if len(os.Args) > 2 {
		owner = os.Args[2]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cc, err := config.LoadContract(cfg.Chain.ContractFile)
	if err != nil {
		log.Fatalf("contract config: %v", err)
	}

	provider, err := chain.NewKeystoreProvider(cfg.Chain)
	if err != nil {
		log.Fatalf("keystore: %v", err)
	}
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	accounts, err := provider.RequestAccounts(ctx)
	if err != nil {
		log.Fatalf("authorize: %v", err)
	}
	if _, err := provider.ChainID(ctx); err != nil {
		log.Fatalf("rpc: %v", err)
	}

	binding, err := contract.NewBinding(cc, provider.Backend())
	if err != nil {
		log.Fatalf("bind: %v", err)
	}
	opts, err := provider.TransactOpts(ctx, accounts[0])
	if err != nil {
		log.Fatalf("transactor: %v", err)
	}

	res, err := binding.RegisterVineyard(ctx, opts, contract.RegisterVineyardInput{
		Name:         name,
		Owner:        owner,
		GrapeVariety: "Trebbiano",
		Latitude:     "43.4643",
		Longitude:    "11.8796",
	})
	if err != nil {
		log.Fatalf("registerVineyard: %v", err)
	}

	fmt.Printf("Registered vineyard %d in block %d (tx %s)\n",
		res.ID, res.BlockNumber, res.TxHash.Hex())
}
