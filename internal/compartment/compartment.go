// ABOUTME: Seat range parsing and compartment block reduction
// ABOUTME: Turns tokens like "21-28" into whole free compartments such as [21,24] and [25,28]

package compartment

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/2389/rail-scout/internal/rzd"
)

// DefaultCarType is the closed-compartment car class on RZD.
const DefaultCarType = "купе"

// Block is a run of seats sold together as one compartment.
type Block struct {
	Car   string
	First int
	Last  int
}

// String renders the block as "car 05: 21-24".
func (b Block) String() string {
	return fmt.Sprintf("car %s: %d-%d", b.Car, b.First, b.Last)
}

// Rule decides which whole compartments fit in a free seat range.
type Rule interface {
	Blocks(first, last int) [][2]int
}

// FourBerth is the four-seats-per-compartment numbering rule: a
// compartment starts at every seat s with s mod 4 == 1.
type FourBerth struct{}

// Blocks returns [s, s+3] for every compartment fully inside [first, last].
func (FourBerth) Blocks(first, last int) [][2]int {
	var out [][2]int
	for s := first; s <= last; s++ {
		if s%4 == 1 && last-s >= 3 {
			out = append(out, [2]int{s, s + 3})
		}
	}
	return out
}

// Reducer applies a Rule to the cars of a given type.
type Reducer struct {
	rule    Rule
	carType string
	logger  *slog.Logger
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithRule swaps the numbering rule.
func WithRule(r Rule) Option {
	return func(rd *Reducer) { rd.rule = r }
}

// WithCarType sets the car class to consider.
func WithCarType(t string) Option {
	return func(rd *Reducer) {
		if t != "" {
			rd.carType = t
		}
	}
}

// WithLogger sets the logger used for upstream data anomalies.
func WithLogger(l *slog.Logger) Option {
	return func(rd *Reducer) {
		if l != nil {
			rd.logger = l
		}
	}
}

// NewReducer creates a Reducer with the FourBerth rule for DefaultCarType.
func NewReducer(opts ...Option) *Reducer {
	rd := &Reducer{
		rule:    FourBerth{},
		carType: DefaultCarType,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(rd)
	}
	rd.logger = rd.logger.With("component", "compartment")
	return rd
}

// CarType returns the car class this reducer considers.
func (rd *Reducer) CarType() string {
	return rd.carType
}

// Reduce returns the whole free compartments of one car. Cars of another
// class and accessibility cars yield nothing. Malformed tokens and ranges
// with first > last are skipped and logged.
func (rd *Reducer) Reduce(car rzd.CarSeatMap) []Block {
	if car.Accessible || !strings.EqualFold(strings.TrimSpace(car.Type), rd.carType) {
		return nil
	}

	var blocks []Block
	for _, token := range car.Ranges {
		first, last, err := ParseRange(token)
		if err != nil {
			rd.logger.Warn("skipping malformed seat range", "car", car.Number, "token", token, "error", err)
			continue
		}
		if first > last {
			rd.logger.Warn("skipping inverted seat range", "car", car.Number, "first", first, "last", last)
			continue
		}
		for _, span := range rd.rule.Blocks(first, last) {
			blocks = append(blocks, Block{Car: car.Number, First: span[0], Last: span[1]})
		}
	}
	return blocks
}

// ReduceAll reduces every car in order.
func (rd *Reducer) ReduceAll(cars []rzd.CarSeatMap) []Block {
	var blocks []Block
	for _, car := range cars {
		blocks = append(blocks, rd.Reduce(car)...)
	}
	return blocks
}

// ParseRange parses "<first><letters?>-<last><letters?>". Trailing letters
// (berth markers such as "М" or "Ж") are ignored.
func ParseRange(token string) (first, last int, err error) {
	parts := strings.Split(strings.TrimSpace(token), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected two bounds in %q", token)
	}
	if first, err = parseSeat(parts[0]); err != nil {
		return 0, 0, err
	}
	if last, err = parseSeat(parts[1]); err != nil {
		return 0, 0, err
	}
	return first, last, nil
}

func parseSeat(s string) (int, error) {
	trimmed := strings.TrimRightFunc(strings.TrimSpace(s), unicode.IsLetter)
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parsing seat %q: %w", s, err)
	}
	return n, nil
}
