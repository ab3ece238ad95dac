package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/winetrace/winetracego/internal/chain"
	"github.com/winetrace/winetracego/internal/config"
	"github.com/winetrace/winetracego/internal/contract"
)

// artifact is the compiler output we read the ABI and bytecode from.
type artifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode string          `json:"bytecode"`
}

func main() {
	artifactPath := flag.String("artifact", "./artifacts/WineTrace.json", "compiled contract artifact (abi + bytecode)")
	outPath := flag.String("out", "", "where to write the contract config (defaults to CONTRACT_FILE)")
	seed := flag.Bool("seed", false, "register a demo vineyard after deploying")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *outPath == "" {
		*outPath = cfg.Chain.ContractFile
	}

	raw, err := os.ReadFile(*artifactPath)
	if err != nil {
		log.Fatalf("Failed to read artifact %s: %v", *artifactPath, err)
	}
	var art artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		log.Fatalf("Failed to parse artifact: %v", err)
	}
	if len(art.ABI) == 0 || art.Bytecode == "" {
		log.Fatalf("Artifact %s is missing abi or bytecode", *artifactPath)
	}

	parsed, err := abi.JSON(strings.NewReader(string(art.ABI)))
	if err != nil {
		log.Fatalf("Failed to parse ABI: %v", err)
	}

	provider, err := chain.NewKeystoreProvider(cfg.Chain)
	if err != nil {
		log.Fatalf("Failed to open keystore: %v", err)
	}
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	accounts, err := provider.RequestAccounts(ctx)
	if err != nil {
		log.Fatalf("Failed to authorize deployer account: %v", err)
	}
	deployer := accounts[0]

	chainID, err := provider.ChainID(ctx)
	if err != nil {
		log.Fatalf("Failed to reach RPC endpoint %s: %v", cfg.Chain.RPCURL, err)
	}
	if chainID.Int64() != cfg.Chain.ExpectedChainID {
		log.Fatalf("Endpoint reports chain %s, expected %d", chainID, cfg.Chain.ExpectedChainID)
	}
	log.Printf("🌐 Deploying to chain %s via %s as %s", chainID, cfg.Chain.RPCURL, deployer.Hex())

	opts, err := provider.TransactOpts(ctx, deployer)
	if err != nil {
		log.Fatalf("Failed to build transactor: %v", err)
	}

	backend := provider.Backend()
	address, tx, _, err := bind.DeployContract(opts, parsed, common.FromHex(art.Bytecode), backend)
	if err != nil {
		log.Fatalf("Deployment failed: %v", err)
	}
	log.Printf("📦 Deployment transaction %s, waiting...", tx.Hash().Hex())

	if _, err := bind.WaitDeployed(ctx, backend, tx); err != nil {
		log.Fatalf("Deployment not mined: %v", err)
	}
	log.Printf("✅ Contract deployed at %s", address.Hex())

	cc := &config.ContractConfig{
		Address:    address.Hex(),
		ABI:        art.ABI,
		Network:    fmt.Sprintf("chain-%s", chainID),
		DeployedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := cc.Save(*outPath); err != nil {
		log.Fatalf("Failed to write contract config: %v", err)
	}
	log.Printf("✅ Contract config written to %s", *outPath)

	if *seed {
		binding, err := contract.NewBinding(cc, backend)
		if err != nil {
			log.Fatalf("Failed to bind contract: %v", err)
		}
		seedOpts, err := provider.TransactOpts(ctx, deployer)
		if err != nil {
			log.Fatalf("Failed to build transactor: %v", err)
		}
		res, err := binding.RegisterVineyard(ctx, seedOpts, contract.RegisterVineyardInput{
			Name:         "Demo Vineyard",
			Owner:        "Demo Owner",
			GrapeVariety: "Sangiovese",
			Latitude:     "43.7696",
			Longitude:    "11.2558",
		})
		if err != nil {
			log.Fatalf("Seed registration failed: %v", err)
		}
		log.Printf("✅ Seeded vineyard %d (tx %s)", res.ID, res.TxHash.Hex())
	}
}
