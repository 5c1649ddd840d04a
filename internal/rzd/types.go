// ABOUTME: Domain types returned by the RZD client
// ABOUTME: Points, train listings with per-car free seats and per-car seat ranges

package rzd

import "strings"

// PointCode is a station or city the backend can route from or to.
type PointCode struct {
	Code string
	Name string
}

// TrainCar is one car class entry in a schedule listing.
type TrainCar struct {
	Type       string
	FreeSeats  int
	Accessible bool // car reserved for passengers with reduced mobility
}

// TrainListing is one train in a schedule answer.
type TrainListing struct {
	Number string
	Date   string // departure date exactly as upstream reports it (dd.mm.yyyy)
	Time   string // departure time exactly as upstream reports it (HH:MM)
	Cars   []TrainCar
}

// FreeSeatsOfType sums free seats over cars of the given type, skipping
// accessibility cars. Type comparison is case-insensitive.
func (t TrainListing) FreeSeatsOfType(carType string) int {
	total := 0
	for _, car := range t.Cars {
		if car.Accessible || !sameCarType(car.Type, carType) {
			continue
		}
		total += car.FreeSeats
	}
	return total
}

// CarSeatMap holds the raw free seat ranges of a single car.
type CarSeatMap struct {
	Number     string
	Type       string
	Ranges     []string // tokens like "21-28" or "1М-4М"
	Accessible bool
}

// TrainRef identifies one departure for a carriage lookup.
type TrainRef struct {
	Origin      string
	Destination string
	Date        string
	Time        string
	Number      string
}

func sameCarType(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
