package builder

import "sync"

// Observer receives every item as it is produced.
type Observer func(Item)

// sink accumulates items into the current summary and fans them out to the
// registered observers. Delivery is synchronous and in registration order;
// observer panics are not caught.
type sink struct {
	mu        sync.Mutex
	summary   *Summary
	observers map[int]Observer
	order     []int
	nextID    int
}

func newSink() *sink {
	return &sink{observers: make(map[int]Observer)}
}

func (s *sink) reset(summary *Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
}

// subscribe registers fn and returns its unsubscribe handle.
func (s *sink) subscribe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.order = append(s.order, id)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// log appends item to the summary and notifies every observer before
// returning. Appending is serialized; observer invocation happens outside
// the lock so observers may register or unsubscribe without deadlocking.
func (s *sink) log(item Item) Item {
	s.mu.Lock()
	if s.summary != nil {
		s.summary.Items = append(s.summary.Items, item)
	}
	fns := make([]Observer, 0, len(s.order))
	for _, id := range s.order {
		if fn, ok := s.observers[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(item)
	}
	return item
}
