// Package synced keeps a local copy of one entity list in step with the remote
// store. The copy is only changed after the remote call succeeded, so a failed
// mutation never needs rolling back.
package synced

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/MrJamesThe3rd/gastos/internal/auth"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
)

type Entity interface {
	EntityID() string
}

// Store is the remote side of a collection. Gateways and the expense service satisfy it.
type Store[E Entity, P any] interface {
	GetAll(ctx context.Context) ([]E, error)
	Create(ctx context.Context, e E) (E, error)
	Update(ctx context.Context, id string, p P) (E, error)
	Delete(ctx context.Context, id string) error
}

type Session interface {
	Account() (auth.Account, error)
}

// Snapshot is the state of a collection at one point in time. Items is a copy.
type Snapshot[E Entity] struct {
	Items   []E
	Loading bool
	Err     error
}

// Collection mutations are not serialised: when two calls race, the response
// that arrives last is the one kept.
type Collection[E Entity, P any] struct {
	store   Store[E, P]
	session Session
	log     *slog.Logger

	mu        sync.Mutex
	items     []E
	loading   bool
	err       error
	listeners []func(Snapshot[E])
}

func New[E Entity, P any](store Store[E, P], session Session, log *slog.Logger) *Collection[E, P] {
	if log == nil {
		log = slog.Default()
	}

	return &Collection[E, P]{store: store, session: session, log: log}
}

// OnChange registers fn to be called with a snapshot after every state change.
func (c *Collection[E, P]) OnChange(fn func(Snapshot[E])) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, fn)
}

func (c *Collection[E, P]) Snapshot() Snapshot[E] {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshot()
}

// Mount loads the collection when there is a signed-in account. Without one the
// collection stays empty and no error is recorded.
func (c *Collection[E, P]) Mount(ctx context.Context) error {
	if _, err := c.session.Account(); err != nil {
		c.update(func() {
			c.items = []E{}
			c.loading = false
			c.err = nil
		})

		return nil
	}

	return c.Reload(ctx)
}

// Reload replaces the collection with the remote rows. On failure the previous
// rows are kept and the error is recorded.
func (c *Collection[E, P]) Reload(ctx context.Context) error {
	c.update(func() { c.loading = true })

	items, err := c.store.GetAll(ctx)

	c.update(func() {
		c.loading = false
		c.err = err

		if err == nil {
			c.items = items
		}
	})

	if err != nil {
		c.log.Warn("reload failed", "error", err)
	}

	return err
}

// Create adds the stored entity to the collection. An expense saved with some
// attachments missing is added as well and the error is recorded.
func (c *Collection[E, P]) Create(ctx context.Context, e E) (E, error) {
	created, err := c.store.Create(ctx, e)

	c.settle(created, err)

	return created, err
}

func (c *Collection[E, P]) Update(ctx context.Context, id string, p P) (E, error) {
	updated, err := c.store.Update(ctx, id, p)

	c.settle(updated, err)

	return updated, err
}

func (c *Collection[E, P]) Delete(ctx context.Context, id string) error {
	err := c.store.Delete(ctx, id)

	c.update(func() {
		c.err = err

		if err == nil {
			c.items = slices.DeleteFunc(slices.Clone(c.items), func(x E) bool { return x.EntityID() == id })
		}
	})

	return err
}

func (c *Collection[E, P]) settle(e E, err error) {
	stored := err == nil || (errors.Is(err, sharepoint.ErrPartialAttachment) && e.EntityID() != "")

	c.update(func() {
		c.err = err

		if stored {
			c.merge(e)
		}
	})
}

// merge replaces the entry with the same id or appends e.
func (c *Collection[E, P]) merge(e E) {
	items := slices.Clone(c.items)

	if i := slices.IndexFunc(items, func(x E) bool { return x.EntityID() == e.EntityID() }); i >= 0 {
		items[i] = e
	} else {
		items = append(items, e)
	}

	c.items = items
}

func (c *Collection[E, P]) update(fn func()) {
	c.mu.Lock()
	fn()
	snap := c.snapshot()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (c *Collection[E, P]) snapshot() Snapshot[E] {
	return Snapshot[E]{Items: slices.Clone(c.items), Loading: c.loading, Err: c.err}
}
