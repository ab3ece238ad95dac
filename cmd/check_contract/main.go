package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/winetrace/winetracego/internal/chain"
	"github.com/winetrace/winetracego/internal/config"
	"github.com/winetrace/winetracego/internal/contract"
)

// Connects to the configured endpoint and prints a quick sanity snapshot of
// the deployed contract: counts plus the first record of each kind.
func main() {
	verbose := flag.Bool("verbose", false, "dump every record, not just the first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cc, err := config.LoadContract(cfg.Chain.ContractFile)
	if err != nil {
		log.Fatalf("Failed to load contract config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backend, err := chain.NewReadBackend(ctx, cfg.Chain.RPCURL)
	if err != nil {
		log.Fatalf("Failed to reach RPC endpoint %s: %v", cfg.Chain.RPCURL, err)
	}

	binding, err := contract.NewBinding(cc, backend)
	if err != nil {
		log.Fatalf("Failed to bind contract: %v", err)
	}
	log.Printf("🌐 Contract %s via %s", cc.Address, cfg.Chain.RPCURL)

	vineyards, err := binding.VineyardCount(ctx)
	if err != nil {
		log.Fatalf("vineyardCount failed: %v", err)
	}
	processes, err := binding.ProcessCount(ctx)
	if err != nil {
		log.Fatalf("processCount failed: %v", err)
	}
	head, err := binding.HeadBlock(ctx)
	if err != nil {
		log.Fatalf("head block query failed: %v", err)
	}
	log.Printf("📦 %d vineyards, %d processes, head block %d", vineyards, processes, head)

	maxV, maxP := uint64(1), uint64(1)
	if *verbose {
		maxV, maxP = vineyards, processes
	}

	for id := uint64(1); id <= vineyards && id <= maxV; id++ {
		v, err := binding.GetVineyard(ctx, id)
		if err != nil {
			log.Printf("⚠️ getVineyard(%d): %v", id, err)
			continue
		}
		log.Printf("  vineyard %d: %q owner=%q variety=%q at (%s, %s) registered %s",
			v.ID, v.Name, v.Owner, v.GrapeVariety, v.Latitude, v.Longitude,
			v.RegisteredAt.Format(time.RFC3339))
	}

	for id := uint64(1); id <= processes && id <= maxP; id++ {
		p, err := binding.GetProcess(ctx, id)
		if err != nil {
			log.Printf("⚠️ getProcess(%d): %v", id, err)
			continue
		}
		cid, err := binding.GetProcessCID(ctx, id)
		if err != nil {
			log.Printf("⚠️ getProcessIPFSCid(%d): %v", id, err)
		}
		log.Printf("  process %d: vineyard=%d %q file=%s cid=%s by %s",
			p.ID, p.VineyardID, p.Title, p.FileName, cid, p.CreatedBy)
	}

	log.Println("✅ Contract check complete")
}
