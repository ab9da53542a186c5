// Package challenge holds the rules of the 100 Times Challenge: how squares
// are numbered and placed, when a day completes, and the serial queue that
// applies increments one at a time.
package challenge

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/sadopc/hundred/internal/store"
)

const (
	// Target is the number of squares that completes a day.
	Target = 100
	// BoardSide is the width and height of the board.
	BoardSide = 10
)

var (
	ErrDayComplete     = errors.New("day already complete")
	ErrInvalidDay      = errors.New("invalid day")
	ErrClosed          = errors.New("tracker closed")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrInvalidSetting  = errors.New("invalid setting")
)

// Palette is the set of colors squares are painted with.
var Palette = []string{
	"#6C63FF", "#2EC4B6", "#FF6B6B", "#F39C12",
	"#2ECC71", "#E74C3C", "#9B59B6", "#3498DB",
	"#1ABC9C", "#F1C40F",
}

// InvariantError reports which rule a day record breaks.
type InvariantError struct {
	Day    int
	Reason string
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("day %d: %s", e.Day, e.Reason)
}

func (e InvariantError) Unwrap() error { return ErrInvalidSnapshot }

func ValidDay(day int) bool {
	return day >= 1 && day <= store.NumDays
}

func ValidMode(m store.DisplayMode) bool {
	switch m {
	case store.DisplayRandom, store.DisplaySequential, store.DisplayBig:
		return true
	}
	return false
}

// Placer picks the board cell and color for the next square.
type Placer struct {
	rnd *rand.Rand
}

func NewPlacer(seed uint64) *Placer {
	return &Placer{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Place returns a free position and a color for square number n. It reports
// false when the board is full.
func (p *Placer) Place(mode store.DisplayMode, n int, used map[int]bool) (int, string, bool) {
	if len(used) >= Target {
		return 0, "", false
	}
	switch mode {
	case store.DisplayRandom:
		free := make([]int, 0, Target-len(used))
		for pos := 0; pos < Target; pos++ {
			if !used[pos] {
				free = append(free, pos)
			}
		}
		return free[p.rnd.IntN(len(free))], Palette[p.rnd.IntN(len(Palette))], true
	default:
		// Sequential and big share placement. A cell may already be taken
		// after a switch from random mode; walk forward to the next free one.
		start := (n - 1) % Target
		for i := 0; i < Target; i++ {
			pos := (start + i) % Target
			if !used[pos] {
				return pos, Palette[(n-1)%len(Palette)], true
			}
		}
	}
	return 0, "", false
}

// Validate checks the invariants of a day record.
func Validate(d store.Day) error {
	if !ValidDay(d.Number) {
		return InvariantError{Day: d.Number, Reason: "day out of range"}
	}
	numbers := make(map[int]bool, len(d.Squares))
	positions := make(map[int]bool, len(d.Squares))
	max := 0
	for _, sq := range d.Squares {
		if sq.Number < 1 || sq.Number > Target {
			return InvariantError{Day: d.Number, Reason: fmt.Sprintf("square number %d out of range", sq.Number)}
		}
		if sq.Position < 0 || sq.Position >= Target {
			return InvariantError{Day: d.Number, Reason: fmt.Sprintf("square position %d out of range", sq.Position)}
		}
		if numbers[sq.Number] {
			return InvariantError{Day: d.Number, Reason: fmt.Sprintf("duplicate number %d", sq.Number)}
		}
		if positions[sq.Position] {
			return InvariantError{Day: d.Number, Reason: fmt.Sprintf("duplicate position %d", sq.Position)}
		}
		numbers[sq.Number] = true
		positions[sq.Position] = true
		if sq.Number > max {
			max = sq.Number
		}
	}
	// Numbers are handed out 1, 2, 3, ... so the count equals the highest number
	// only when there are no gaps.
	if max != len(d.Squares) {
		return InvariantError{Day: d.Number, Reason: fmt.Sprintf("numbers are not contiguous (max %d, %d squares)", max, len(d.Squares))}
	}
	if d.Completed != (max == Target) {
		return InvariantError{Day: d.Number, Reason: fmt.Sprintf("completed=%t with count %d", d.Completed, max)}
	}
	return nil
}
