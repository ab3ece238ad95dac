package main

import (
	"context"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/winetrace/winetracego/internal/buildinfo"
	"github.com/winetrace/winetracego/internal/chain"
	"github.com/winetrace/winetracego/internal/config"
	"github.com/winetrace/winetracego/internal/contract"
	"github.com/winetrace/winetracego/internal/database"
	"github.com/winetrace/winetracego/internal/handlers"
	"github.com/winetrace/winetracego/internal/indexer"
	"github.com/winetrace/winetracego/internal/ipfs"
	"github.com/winetrace/winetracego/internal/models"
	"github.com/winetrace/winetracego/internal/session"
	ws "github.com/winetrace/winetracego/internal/websocket"
)

func main() {
	log.Printf("🍷 winetrace companion starting (version %s, built %s)",
		buildinfo.Version, buildinfo.BuildTime)

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireJWT(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	contractCfg, err := config.LoadContract(cfg.Chain.ContractFile)
	if err != nil {
		log.Fatalf("Failed to load contract config (run the deploy tool first): %v", err)
	}

	// 2. Initialize database (external or embedded)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 3. Synchronize schema
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.Vineyard{},
		&models.Process{},
		&models.ChainEvent{},
		&models.IndexCheckpoint{},
		&models.UserAuth{},
	)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("✅ Schema synchronized")

	// 4. Wallet provider and session
	var provider chain.Provider
	if p, err := chain.NewKeystoreProvider(cfg.Chain); err != nil {
		log.Printf("⚠️ No wallet capability: %v (read-only mode)", err)
	} else {
		provider = p
		defer p.Close()
	}

	expected := chain.HardhatLocal
	expected.ChainID = big.NewInt(cfg.Chain.ExpectedChainID)
	expected.RPCURL = cfg.Chain.RPCURL

	sess := session.New(provider, expected, func(backend chain.Backend) (*contract.Binding, error) {
		return contract.NewBinding(contractCfg, backend)
	})
	defer sess.Close()

	// Silent rebind; must not block startup
	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	sess.AutoReconnect(startupCtx)
	cancel()

	// 5. Push hub
	hub := ws.NewHub()
	go hub.Run()

	// 6. Indexer over a read-only binding (works without a wallet)
	var engine *indexer.Engine
	if cfg.Indexer.Enabled {
		readBackend, err := chain.NewReadBackend(context.Background(), cfg.Chain.RPCURL)
		if err != nil {
			log.Printf("⚠️ Indexer disabled, RPC unreachable: %v", err)
		} else {
			reader, err := contract.NewBinding(contractCfg, readBackend)
			if err != nil {
				log.Fatalf("Failed to bind contract for indexing: %v", err)
			}
			engine = indexer.NewEngine(db, reader, cfg.Indexer.PollInterval, hub)
			if err := engine.Start(); err != nil {
				log.Printf("⚠️ Indexer failed to start: %v", err)
			}
		}
	}

	// 7. HTTP router
	ipfsClient := ipfs.NewClient(cfg.IPFS)
	router := handlers.NewRouter(db, cfg, sess, ipfsClient, hub)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("🌐 API listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// 8. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down...")

	if engine != nil {
		engine.Stop()
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("⚠️ Database shutdown: %v", err)
	}
	log.Println("👋 Bye")
}
