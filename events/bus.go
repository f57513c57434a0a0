package events

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ip-tracking-api/repository"
)

// TxListener runs inside the transaction that produced the fact. Returning an
// error aborts the transaction.
type TxListener func(ctx context.Context, tx repository.Store, fact ChangeFact) error

// Listener runs after commit. Its errors are logged and never reach the caller.
type Listener func(ctx context.Context, fact ChangeFact) error

type registration[T any] struct {
	name   string
	entity Entity
	fn     T
}

// Bus routes change facts to the listeners registered for their entity.
// Listeners are registered explicitly at process start.
type Bus struct {
	mu    sync.RWMutex
	tx    []registration[TxListener]
	after []registration[Listener]
	now   func() time.Time
	wg    sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{now: time.Now}
}

// SetClock replaces the time source used to stamp facts.
func (b *Bus) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Subscribe registers a transactional listener for entity.
func (b *Bus) Subscribe(name string, entity Entity, fn TxListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tx = append(b.tx, registration[TxListener]{name: name, entity: entity, fn: fn})
}

// SubscribeAfterCommit registers a listener that sees facts once their
// transaction has committed.
func (b *Bus) SubscribeAfterCommit(name string, entity Entity, fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.after = append(b.after, registration[Listener]{name: name, entity: entity, fn: fn})
}

// Listeners returns the registered listener names, transactional first.
func (b *Bus) Listeners() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.tx)+len(b.after))
	for _, r := range b.tx {
		names = append(names, r.name)
	}
	for _, r := range b.after {
		names = append(names, r.name)
	}
	return names
}

func (b *Bus) clock() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.now()
}

// NewBatch opens a collection of facts bound to tx.
func (b *Bus) NewBatch(tx repository.Store) *Batch {
	return &Batch{bus: b, tx: tx}
}

// RunInTx runs fn in a transaction of store with every write to a watched
// entity turned into a fact. Transactional listeners run as the facts are
// emitted; after-commit listeners run once the transaction has committed.
func (b *Bus) RunInTx(ctx context.Context, store repository.Store, fn func(tx repository.Store) error) error {
	var facts []ChangeFact
	err := store.RunInTx(ctx, func(tx repository.Store) error {
		batch := b.NewBatch(tx)
		if err := fn(Watch(tx, batch)); err != nil {
			return err
		}
		facts = batch.Facts()
		return nil
	})
	if err != nil {
		return err
	}
	b.Deliver(ctx, facts)
	return nil
}

// Deliver hands committed facts to the after-commit listeners, each on its own
// goroutine. Panics are recovered and logged.
func (b *Bus) Deliver(ctx context.Context, facts []ChangeFact) {
	if len(facts) == 0 {
		return
	}
	b.mu.RLock()
	listeners := make([]registration[Listener], len(b.after))
	copy(listeners, b.after)
	b.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, fact := range facts {
		for _, l := range listeners {
			if l.entity != fact.Entity {
				continue
			}
			b.wg.Add(1)
			go func(l registration[Listener], fact ChangeFact) {
				defer b.wg.Done()
				defer func() {
					if r := recover(); r != nil {
						log.Printf("[events] listener %s panicked on %s %d: %v", l.name, fact.Entity, fact.EntityID, r)
					}
				}()
				if err := l.fn(detached, fact); err != nil {
					log.Printf("[events] listener %s failed on %s %d: %v", l.name, fact.Entity, fact.EntityID, err)
				}
			}(l, fact)
		}
	}
}

// Wait blocks until every after-commit delivery started so far has returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}

// Batch collects the facts of one transaction.
type Batch struct {
	bus   *Bus
	tx    repository.Store
	facts []ChangeFact
}

// Emit stamps fact with the origin in ctx and runs the transactional
// listeners for its entity in registration order.
func (bt *Batch) Emit(ctx context.Context, fact ChangeFact) error {
	origin := OriginFrom(ctx)
	if fact.ActorID == "" {
		fact.ActorID = origin.ActorID
	}
	if fact.Action == "" {
		fact.Action = origin.Action
	}
	if fact.Comment == "" {
		fact.Comment = origin.Comment
	}
	if fact.OccurredAt.IsZero() {
		fact.OccurredAt = bt.bus.clock()
	}

	bt.bus.mu.RLock()
	listeners := make([]registration[TxListener], len(bt.bus.tx))
	copy(listeners, bt.bus.tx)
	bt.bus.mu.RUnlock()

	for _, l := range listeners {
		if l.entity != fact.Entity {
			continue
		}
		if err := l.fn(ctx, bt.tx, fact); err != nil {
			return fmt.Errorf("listener %s: %w", l.name, err)
		}
	}
	bt.facts = append(bt.facts, fact)
	return nil
}

// Facts returns the facts emitted so far.
func (bt *Batch) Facts() []ChangeFact {
	out := make([]ChangeFact, len(bt.facts))
	copy(out, bt.facts)
	return out
}
