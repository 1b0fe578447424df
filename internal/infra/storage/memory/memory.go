package memory

import (
	"context"
	"sync"

	"github.com/vietddude/armctl/internal/core/domain"
	"github.com/vietddude/armctl/internal/infra/storage"
)

// JournalRepo keeps the most recent commands in process memory.
type JournalRepo struct {
	mu         sync.RWMutex
	records    []*domain.CommandRecord
	maxEntries int
	closed     bool
}

// NewJournalRepo creates an in-memory journal holding at most maxEntries
// records. maxEntries <= 0 uses storage.DefaultMaxEntries.
func NewJournalRepo(maxEntries int) *JournalRepo {
	if maxEntries <= 0 {
		maxEntries = storage.DefaultMaxEntries
	}
	return &JournalRepo{maxEntries: maxEntries}
}

func (r *JournalRepo) Record(ctx context.Context, rec *domain.CommandRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return storage.ErrClosed
	}

	r.records = append(r.records, clone(rec))
	if over := len(r.records) - r.maxEntries; over > 0 {
		r.records = r.records[over:]
	}
	return nil
}

func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]*domain.CommandRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, storage.ErrClosed
	}

	n := len(r.records)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]*domain.CommandRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, clone(r.records[i]))
	}
	return out, nil
}

func (r *JournalRepo) Driver() string {
	return "memory"
}

func (r *JournalRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// clone copies rec including its pose, so stored entries never alias the
// caller's.
func clone(rec *domain.CommandRecord) *domain.CommandRecord {
	cp := *rec
	if rec.Pose != nil {
		pose := *rec.Pose
		cp.Pose = &pose
	}
	return &cp
}
