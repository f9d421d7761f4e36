package service

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/stampworks/loyalty/internal/rule"
)

// notifier fans a customer's fresh snapshots out to watchers. Channels are
// buffered with capacity one and publishes are latest-wins: a slow
// consumer sees the newest snapshot, never a backlog of stale ones.
type notifier struct {
	mu   sync.Mutex
	subs map[snowflake.ID]map[int]chan rule.Snapshot
	next int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[snowflake.ID]map[int]chan rule.Snapshot)}
}

func (n *notifier) subscribe(id snowflake.ID) (<-chan rule.Snapshot, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan rule.Snapshot, 1)
	if n.subs[id] == nil {
		n.subs[id] = make(map[int]chan rule.Snapshot)
	}
	key := n.next
	n.next++
	n.subs[id][key] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if set, ok := n.subs[id]; ok {
			if _, ok := set[key]; ok {
				delete(set, key)
				close(ch)
			}
			if len(set) == 0 {
				delete(n.subs, id)
			}
		}
	}
	return ch, cancel
}

func (n *notifier) publish(id snowflake.ID, snap rule.Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs[id] {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
