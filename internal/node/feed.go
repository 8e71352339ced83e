package node

import (
	"sync"

	"github.com/lox/majorules/internal/ledger"
	"github.com/rs/zerolog"
)

// Feed fans committed blocks out to subscribers. Publishing never blocks; a
// subscriber that falls behind misses blocks.
type Feed struct {
	logger zerolog.Logger

	mu      sync.Mutex
	subs    map[uint64]chan ledger.Block
	next    uint64
	dropped uint64
}

func newFeed(logger zerolog.Logger) *Feed {
	return &Feed{
		logger: logger.With().Str("component", "feed").Logger(),
		subs:   make(map[uint64]chan ledger.Block),
	}
}

// Subscribe returns a channel of blocks and a function that cancels the
// subscription and closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan ledger.Block, func()) {
	ch := make(chan ledger.Block, buffer)

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *Feed) publish(b ledger.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		select {
		case ch <- b:
		default:
			f.dropped++
			f.logger.Debug().Uint64("subscriber", id).Str("chain", b.Chain.Short()).Msg("Subscriber behind, block dropped")
		}
	}
}

// Subscribers counts active subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Dropped counts blocks not delivered to slow subscribers.
func (f *Feed) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
