package edm

// Source yields events one at a time.
//
//	for src.Next() {
//		evt := src.Event()
//		...
//	}
//	err := src.Err()
type Source interface {
	Next() bool
	Event() Event
	Err() error
	Close() error
}

// SliceSource serves events from memory.
type SliceSource struct {
	evts []Event
	cur  int
}

func NewSliceSource(evts []Event) *SliceSource {
	return &SliceSource{evts: evts, cur: -1}
}

func (s *SliceSource) Next() bool {
	if s.cur+1 >= len(s.evts) {
		s.cur = len(s.evts)
		return false
	}
	s.cur++
	return true
}

func (s *SliceSource) Event() Event {
	return s.evts[s.cur]
}

func (s *SliceSource) Err() error   { return nil }
func (s *SliceSource) Close() error { return nil }
