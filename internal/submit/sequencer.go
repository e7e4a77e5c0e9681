package submit

import "sync/atomic"

// Sequencer hands out increasing tickets. Only the reply to the newest ticket
// is shown; replies that arrive after a newer submission are dropped.
type Sequencer struct {
	last atomic.Uint64
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current reports whether no newer ticket was issued after t
func (s *Sequencer) Current(t uint64) bool {
	return s.last.Load() == t
}
