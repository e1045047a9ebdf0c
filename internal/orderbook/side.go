package orderbook

import (
	"fmt"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
)

// BookSide tracks aggregate depth per price tick for one side of the book.
// Every stored level has depth > 0.
type BookSide struct {
	side  model.Side
	tree  *rbTree
	total int64
}

func newBookSide(side model.Side) *BookSide {
	return &BookSide{side: side, tree: newRBTree()}
}

// Side returns which side of the book this is.
func (s *BookSide) Side() model.Side { return s.side }

// Len returns the number of occupied levels.
func (s *BookSide) Len() int { return s.tree.Len() }

// Empty reports whether the side has no levels.
func (s *BookSide) Empty() bool { return s.tree.Len() == 0 }

// Total returns the depth summed over all levels.
func (s *BookSide) Total() int64 { return s.total }

// Depth returns the depth at tick (0 if the level does not exist).
func (s *BookSide) Depth(tick int64) int64 {
	if n := s.tree.find(tick); n != nil {
		return n.depth
	}
	return 0
}

// Best returns the highest bid or the lowest ask.
func (s *BookSide) Best() (int64, bool) {
	var n *node
	if s.side == model.Buy {
		n = s.tree.max()
	} else {
		n = s.tree.min()
	}
	if n == nil {
		return 0, false
	}
	return n.tick, true
}

// add increases depth at tick, creating the level if needed.
func (s *BookSide) add(tick, amount int64) {
	if amount <= 0 {
		return
	}
	n := s.tree.upsert(tick)
	n.depth += amount
	s.total += amount
}

// remove decreases depth at tick. A level reaching zero or below is deleted;
// removing more than the resting depth is not an error.
func (s *BookSide) remove(tick, amount int64) {
	if amount <= 0 {
		return
	}
	n := s.tree.find(tick)
	if n == nil {
		return
	}
	if amount >= n.depth {
		s.total -= n.depth
		s.tree.remove(n)
		return
	}
	n.depth -= amount
	s.total -= amount
}

// Sum returns the depth on levels lo <= tick <= hi.
func (s *BookSide) Sum(lo, hi int64) int64 {
	var sum int64
	s.tree.ascend(lo, hi, func(n *node) bool {
		sum += n.depth
		return true
	})
	return sum
}

// InverseCDF walks levels upward from lo and returns the first tick where the
// cumulative depth reaches rank. rank must lie in [1, Sum(lo, hi)].
func (s *BookSide) InverseCDF(lo, hi, rank int64) (int64, error) {
	if rank < 1 {
		return 0, fmt.Errorf("rank %d in [%d, %d]: %w", rank, lo, hi, ErrRankOutOfRange)
	}
	var (
		cum   int64
		found bool
		tick  int64
	)
	s.tree.ascend(lo, hi, func(n *node) bool {
		cum += n.depth
		if cum >= rank {
			tick, found = n.tick, true
			return false
		}
		return true
	})
	if !found {
		return 0, fmt.Errorf("rank %d exceeds depth %d in [%d, %d]: %w", rank, cum, lo, hi, ErrRankOutOfRange)
	}
	return tick, nil
}

// Levels returns the levels with lo <= tick <= hi in ascending tick order.
func (s *BookSide) Levels(lo, hi int64) []model.Level {
	var levels []model.Level
	s.tree.ascend(lo, hi, func(n *node) bool {
		levels = append(levels, model.Level{Price: n.tick, Volume: n.depth})
		return true
	})
	return levels
}

// All returns every level in ascending tick order.
func (s *BookSide) All() []model.Level {
	levels := make([]model.Level, 0, s.tree.Len())
	for n := s.tree.min(); n != nil && n != s.tree.nil; n = s.tree.next(n) {
		levels = append(levels, model.Level{Price: n.tick, Volume: n.depth})
	}
	return levels
}
