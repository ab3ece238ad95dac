package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/winetrace/winetracego/internal/contract"
	"github.com/winetrace/winetracego/internal/database"
	"github.com/winetrace/winetracego/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChainReader is what the engine needs from the contract facade
type ChainReader interface {
	HeadBlock(ctx context.Context) (uint64, error)
	FilterRecordEvents(ctx context.Context, from, to uint64) ([]contract.LogEvent, error)
	GetVineyard(ctx context.Context, id uint64) (*contract.VineyardInfo, error)
	GetProcess(ctx context.Context, id uint64) (*contract.ProcessInfo, error)
	GetProcessCID(ctx context.Context, id uint64) (string, error)
}

// Notifier receives newly indexed records
type Notifier interface {
	RecordIndexed(kind string, payload interface{})
}

// Engine maintains the read model: it replays contract events from the last
// checkpoint, hydrates each event with a secondary read, and projects the
// result into the database. Views query the projection; nothing replays the
// event log per page load.
type Engine struct {
	mu sync.Mutex

	db       *database.DB
	reader   ChainReader
	interval time.Duration
	notifier Notifier

	isRunning bool
	stopChan  chan struct{}
}

// NewEngine creates an indexer engine
func NewEngine(db *database.DB, reader ChainReader, interval time.Duration, notifier Notifier) *Engine {
	return &Engine{
		db:       db,
		reader:   reader,
		interval: interval,
		stopChan: make(chan struct{}),
		notifier: notifier,
	}
}

// Start launches the poll loop
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isRunning {
		return fmt.Errorf("indexer already running")
	}
	e.isRunning = true

	log.Println("🔄 Indexer starting...")
	go e.run()
	return nil
}

// Stop terminates the poll loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isRunning {
		return
	}
	e.isRunning = false
	close(e.stopChan)
	log.Println("🛑 Indexer stopped")
}

func (e *Engine) run() {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	// First scan immediately, then on the ticker
	if err := e.ScanOnce(context.Background()); err != nil {
		log.Printf("⚠️ Indexer scan failed: %v", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := e.ScanOnce(context.Background()); err != nil {
				log.Printf("⚠️ Indexer scan failed: %v", err)
			}
		case <-e.stopChan:
			return
		}
	}
}

// ScanOnce advances the projection from the last checkpoint to the chain
// head. Event hydration failures skip the record; the checkpoint still
// advances, so a permanently unreadable record never wedges the scan.
func (e *Engine) ScanOnce(ctx context.Context) error {
	checkpoint, err := e.loadCheckpoint()
	if err != nil {
		return err
	}

	head, err := e.reader.HeadBlock(ctx)
	if err != nil {
		return fmt.Errorf("head block: %w", err)
	}
	if head <= checkpoint.LastBlock {
		return nil
	}

	from := checkpoint.LastBlock + 1
	events, err := e.reader.FilterRecordEvents(ctx, from, head)
	if err != nil {
		return fmt.Errorf("replay blocks %d..%d: %w", from, head, err)
	}

	vineyards, processes, audits := Hydrate(ctx, e.reader, events)

	err = e.db.Transaction(func(tx *gorm.DB) error {
		for i := range vineyards {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&vineyards[i]).Error; err != nil {
				return fmt.Errorf("project vineyard %d: %w", vineyards[i].ID, err)
			}
		}
		for i := range processes {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&processes[i]).Error; err != nil {
				return fmt.Errorf("project process %d: %w", processes[i].ID, err)
			}
		}
		for i := range audits {
			if err := tx.Create(&audits[i]).Error; err != nil {
				return fmt.Errorf("record chain event: %w", err)
			}
		}
		checkpoint.LastBlock = head
		return tx.Save(checkpoint).Error
	})
	if err != nil {
		return err
	}

	if len(vineyards)+len(processes) > 0 {
		log.Printf("📦 Indexed %d vineyard(s), %d process(es) up to block %d",
			len(vineyards), len(processes), head)
	}

	if e.notifier != nil {
		for i := range vineyards {
			e.notifier.RecordIndexed("vineyard", vineyards[i])
		}
		for i := range processes {
			e.notifier.RecordIndexed("process", processes[i])
		}
	}
	return nil
}

// Hydrate performs the secondary read for each replayed event and builds the
// projection rows. Records whose secondary read fails are dropped, never
// surfaced partially populated.
func Hydrate(ctx context.Context, reader ChainReader, events []contract.LogEvent) ([]models.Vineyard, []models.Process, []models.ChainEvent) {
	var (
		vineyards []models.Vineyard
		processes []models.Process
		audits    []models.ChainEvent
	)

	for _, ev := range events {
		switch ev.Name {
		case contract.EventVineyardRegistered:
			info, err := reader.GetVineyard(ctx, ev.RecordID)
			if err != nil {
				log.Printf("⚠️ Skipping vineyard %d: %v", ev.RecordID, err)
				continue
			}
			vineyards = append(vineyards, models.Vineyard{
				ID:           info.ID,
				Name:         info.Name,
				Owner:        info.Owner,
				GrapeVariety: info.GrapeVariety,
				Latitude:     info.Latitude,
				Longitude:    info.Longitude,
				RegisteredAt: info.RegisteredAt,
				BlockNumber:  ev.BlockNumber,
				TxHash:       ev.TxHash.Hex(),
				IndexedAt:    time.Now().UTC(),
			})
			audits = append(audits, auditRow(ev, info))

		case contract.EventProcessAdded:
			info, err := reader.GetProcess(ctx, ev.RecordID)
			if err != nil {
				log.Printf("⚠️ Skipping process %d: %v", ev.RecordID, err)
				continue
			}
			cid, err := reader.GetProcessCID(ctx, ev.RecordID)
			if err != nil {
				log.Printf("⚠️ Skipping process %d (no CID): %v", ev.RecordID, err)
				continue
			}
			processes = append(processes, models.Process{
				ID:          info.ID,
				VineyardID:  info.VineyardID,
				Title:       info.Title,
				Description: info.Description,
				FileName:    info.FileName,
				FileType:    info.FileType,
				IPFSCid:     cid,
				CreatedAt:   info.CreatedAt,
				CreatedBy:   info.CreatedBy,
				BlockNumber: ev.BlockNumber,
				TxHash:      ev.TxHash.Hex(),
				IndexedAt:   time.Now().UTC(),
			})
			audits = append(audits, auditRow(ev, info))
		}
	}
	return vineyards, processes, audits
}

func auditRow(ev contract.LogEvent, payload interface{}) models.ChainEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	return models.ChainEvent{
		Name:        ev.Name,
		RecordID:    ev.RecordID,
		BlockNumber: ev.BlockNumber,
		TxHash:      ev.TxHash.Hex(),
		LogIndex:    ev.LogIndex,
		Payload:     raw,
		CreatedAt:   time.Now().UTC(),
	}
}

func (e *Engine) loadCheckpoint() (*models.IndexCheckpoint, error) {
	var checkpoint models.IndexCheckpoint
	err := e.db.FirstOrCreate(&checkpoint, models.IndexCheckpoint{ID: 1}).Error
	if err != nil {
		return nil, fmt.Errorf("load index checkpoint: %w", err)
	}
	return &checkpoint, nil
}
