package jobs

import (
	"context"
	"log"
	"time"

	"racebook/internal/services"
)

// LedgerWatcher runs the deposit reconciler on a fixed interval. The
// reconciler itself skips overlapping cycles; Stop lets an in-flight
// cycle finish before halting the timer.
type LedgerWatcher struct {
	reconciler *services.Reconciler
	interval   time.Duration
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// NewLedgerWatcher creates a new ledger watcher job
func NewLedgerWatcher(reconciler *services.Reconciler, interval time.Duration) *LedgerWatcher {
	return &LedgerWatcher{
		reconciler: reconciler,
		interval:   interval,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (lw *LedgerWatcher) Start() {
	defer close(lw.doneChan)

	log.Printf("[LedgerWatcher] Starting deposit reconciliation job (interval: %v)", lw.interval)

	ticker := time.NewTicker(lw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := lw.reconciler.RunCycle(context.Background()); err != nil {
				log.Printf("[LedgerWatcher] Cycle error: %v", err)
			}
		case <-lw.stopChan:
			log.Println("[LedgerWatcher] Stopping deposit reconciliation job")
			return
		}
	}
}

// Stop halts the loop and blocks until it has fully exited, so a
// shutdown never races an in-flight cycle.
func (lw *LedgerWatcher) Stop() {
	close(lw.stopChan)
	<-lw.doneChan
}
