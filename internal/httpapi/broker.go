package httpapi

import (
	"sync"

	"github.com/google/uuid"

	"arfa/internal/store"
)

// broker fans activity log entries out to live SSE subscribers, keyed by
// organization.
type broker struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan store.ActivityLog]struct{}
}

func newBroker() *broker {
	return &broker{subs: map[uuid.UUID]map[chan store.ActivityLog]struct{}{}}
}

func (b *broker) subscribe(orgID uuid.UUID) chan store.ActivityLog {
	ch := make(chan store.ActivityLog, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[orgID]
	if m == nil {
		m = map[chan store.ActivityLog]struct{}{}
		b.subs[orgID] = m
	}
	m[ch] = struct{}{}
	return ch
}

func (b *broker) unsubscribe(orgID uuid.UUID, ch chan store.ActivityLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[orgID]
	if m == nil {
		return
	}
	delete(m, ch)
	close(ch)
	if len(m) == 0 {
		delete(b.subs, orgID)
	}
}

// publish fans an entry out to the org's subscribers. The read lock is
// held across the sends so unsubscribe cannot close a channel mid-publish;
// sends never block, so the lock is short-lived.
func (b *broker) publish(orgID uuid.UUID, entry store.ActivityLog) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[orgID] {
		select {
		case ch <- entry:
		default:
			// Drop for slow consumers; the paginated list covers gaps.
		}
	}
}
