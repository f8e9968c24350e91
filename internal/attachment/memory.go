package attachment

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryJournal keeps sagas for the lifetime of the process.
type MemoryJournal struct {
	mu    sync.Mutex
	sagas map[uuid.UUID]Saga
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{sagas: make(map[uuid.UUID]Saga)}
}

func (j *MemoryJournal) Save(_ context.Context, s *Saga) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	c := *s
	c.Files = slices.Clone(s.Files)
	c.Uploaded = slices.Clone(s.Uploaded)
	c.Failed = slices.Clone(s.Failed)
	j.sagas[s.ID] = c

	return nil
}

// Pending returns the sagas of account that have not completed, oldest first.
func (j *MemoryJournal) Pending(_ context.Context, account string) ([]Saga, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []Saga

	for _, s := range j.sagas {
		if s.Account == account && s.State != StateAttachmentsComplete {
			out = append(out, s)
		}
	}

	slices.SortFunc(out, func(a, b Saga) int { return a.CreatedAt.Compare(b.CreatedAt) })

	return out, nil
}
