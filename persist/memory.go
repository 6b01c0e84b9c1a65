package persist

import (
	"context"
	"sync"

	"github.com/google/uuid"

	lockderrors "github.com/nedzof/lockd.app-sub000/errors"
	"github.com/nedzof/lockd.app-sub000/lockproto"
)

// MemoryGateway is a map-backed Gateway for tests and local runs
type MemoryGateway struct {
	mu       sync.RWMutex
	records  map[string]*lockproto.Record // by tx id
	ids      map[string]string            // tx id -> stored id
	failures map[string]string            // tx id -> error text
	closed   bool
}

// NewMemoryGateway creates an empty in-memory gateway
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		records:  make(map[string]*lockproto.Record),
		ids:      make(map[string]string),
		failures: make(map[string]string),
	}
}

// UpsertRecord implements Gateway
func (g *MemoryGateway) UpsertRecord(_ context.Context, rec *lockproto.Record) (string, error) {
	if rec == nil || rec.TxID == "" {
		return "", lockderrors.WrapInvalid(lockderrors.ErrInvalidRecord,
			"persist", "UpsertRecord", "validate record")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return "", lockderrors.WrapTransient(lockderrors.ErrPersistUnavailable,
			"persist", "UpsertRecord", "store record")
	}

	if id, ok := g.ids[rec.TxID]; ok {
		return id, nil
	}
	id := uuid.NewString()
	g.records[rec.TxID] = rec
	g.ids[rec.TxID] = id
	return id, nil
}

// MaxProcessedHeight implements Gateway
func (g *MemoryGateway) MaxProcessedHeight(_ context.Context) (uint32, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var max uint32
	for _, rec := range g.records {
		if rec.Confirmed && rec.BlockHeight > max {
			max = rec.BlockHeight
		}
	}
	return max, nil
}

// SaveFailure implements Gateway
func (g *MemoryGateway) SaveFailure(_ context.Context, txID string, procErr error, _ []byte) error {
	if txID == "" {
		return lockderrors.WrapInvalid(lockderrors.ErrInvalidRecord,
			"persist", "SaveFailure", "validate tx id")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	g.failures[txID] = msg
	return nil
}

// Close implements Gateway
func (g *MemoryGateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
}

// Record returns a stored record for assertions
func (g *MemoryGateway) Record(txID string) (*lockproto.Record, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.records[txID]
	return rec, ok
}

// Len returns the number of stored records
func (g *MemoryGateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}

// Failure returns the recorded failure text for a transaction
func (g *MemoryGateway) Failure(txID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	msg, ok := g.failures[txID]
	return msg, ok
}
