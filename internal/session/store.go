package session

import "sync"

// Store holds the current session snapshot and broadcasts every transition to
// subscribers in publish order, each transition delivered exactly once per
// subscriber. It has a single writer (the controller); subscribers only read.
type Store struct {
	mu      sync.Mutex
	current Snapshot
	subs    map[int]*subscriber
	nextID  int
}

// NewStore creates a store with the given initial snapshot
func NewStore(initial Snapshot) *Store {
	return &Store{
		current: initial,
		subs:    make(map[int]*subscriber),
	}
}

// Current returns the latest snapshot
func (st *Store) Current() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current
}

// Publish records a transition and fans it out to all subscribers. Only the
// controller calls this.
func (st *Store) Publish(snap Snapshot) {
	st.mu.Lock()
	st.current = snap
	subs := make([]*subscriber, 0, len(st.subs))
	for _, s := range st.subs {
		subs = append(subs, s)
	}
	st.mu.Unlock()

	for _, s := range subs {
		s.push(snap)
	}
}

// Subscribe registers a consumer. The returned channel delivers every
// transition published after the call, in order, and closes when the cancel
// function runs. A slow consumer delays only itself; transitions are queued,
// never dropped.
func (st *Store) Subscribe() (<-chan Snapshot, func()) {
	sub := &subscriber{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		out:  make(chan Snapshot),
	}

	st.mu.Lock()
	id := st.nextID
	st.nextID++
	st.subs[id] = sub
	st.mu.Unlock()

	go sub.run()

	cancel := func() {
		st.mu.Lock()
		if _, ok := st.subs[id]; ok {
			delete(st.subs, id)
			close(sub.stop)
		}
		st.mu.Unlock()
	}
	return sub.out, cancel
}

type subscriber struct {
	mu    sync.Mutex
	queue []Snapshot
	wake  chan struct{}
	stop  chan struct{}
	out   chan Snapshot
}

func (s *subscriber) push(snap Snapshot) {
	s.mu.Lock()
	s.queue = append(s.queue, snap)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	defer close(s.out)

	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			snap := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.out <- snap:
			case <-s.stop:
				return
			}
		}
	}
}
