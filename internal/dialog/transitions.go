// ABOUTME: The state transition function of the search conversation
// ABOUTME: Maps (state, event) to the next state and the replies to render

package dialog

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/2389/rail-scout/internal/rzd"
)

type event interface{ isEvent() }

type textEvent struct{ text string }

// choiceEvent is a pressed list button. idx is 1-based.
type choiceEvent struct {
	prefix string
	gen    uint64
	idx    int
}

func (textEvent) isEvent()   {}
func (choiceEvent) isEvent() {}

// dateLayout accepts one or two digit days and months.
const dateLayout = "2.1.2006"

// step computes the next state. It never mutates the session state itself;
// turn commits the result.
func (c *Coordinator) step(ctx context.Context, s *session, state State, ev event) (State, []Reply) {
	switch st := state.(type) {
	case AwaitingOrigin:
		if e, ok := ev.(textEvent); ok {
			return c.resolvePoints(ctx, s, e.text, nil)
		}

	case AwaitingOriginChoice:
		if idx, ok := pointIndex(ev, st.Generation); ok {
			if idx < 1 || idx > len(st.Candidates) {
				return st, []Reply{{Text: msgPointBadIndex}}
			}
			origin := st.Candidates[idx-1]
			return AwaitingDestination{Origin: origin}, []Reply{{Text: msgOriginChosen(origin.Name)}}
		}

	case AwaitingDestination:
		if e, ok := ev.(textEvent); ok {
			origin := st.Origin
			return c.resolvePoints(ctx, s, e.text, &origin)
		}

	case AwaitingDestinationChoice:
		if idx, ok := pointIndex(ev, st.Generation); ok {
			if idx < 1 || idx > len(st.Candidates) {
				return st, []Reply{{Text: msgPointBadIndex}}
			}
			dest := st.Candidates[idx-1]
			return AwaitingDate{Origin: st.Origin, Destination: dest}, []Reply{{Text: msgDestinationChosen(dest.Name)}}
		}

	case AwaitingDate:
		if e, ok := ev.(textEvent); ok {
			return c.schedule(ctx, s, st, e.text)
		}

	case AwaitingTrainChoice:
		switch e := ev.(type) {
		case textEvent:
			idx, err := strconv.Atoi(strings.TrimSpace(e.text))
			if err != nil || idx < 1 || idx > len(st.Trains) {
				return Idle{}, []Reply{{Text: msgBadTrainIndex(e.text)}}
			}
			return c.carriages(ctx, s, st, idx)
		case choiceEvent:
			if e.prefix == prefixTrain && e.gen == st.Generation {
				if e.idx < 1 || e.idx > len(st.Trains) {
					return Idle{}, []Reply{{Text: msgBadTrainIndex(strconv.Itoa(e.idx))}}
				}
				return c.carriages(ctx, s, st, e.idx)
			}
		}

	case Idle:
		if _, ok := ev.(textEvent); ok {
			return st, []Reply{{Text: msgIdleHint}}
		}
	}

	// A button from an earlier list.
	if _, ok := ev.(choiceEvent); ok {
		return state, []Reply{{Text: msgStaleChoice}}
	}
	return state, nil
}

// pointIndex extracts the chosen index from a point button of generation
// gen or from a number typed as text.
func pointIndex(ev event, gen uint64) (int, bool) {
	switch e := ev.(type) {
	case choiceEvent:
		return e.idx, e.prefix == prefixPoint && e.gen == gen
	case textEvent:
		idx, err := strconv.Atoi(strings.TrimSpace(e.text))
		if err != nil {
			return 0, true
		}
		return idx, true
	}
	return 0, false
}

// resolvePoints looks up the typed point. origin is nil while asking for
// the departure point.
func (c *Coordinator) resolvePoints(ctx context.Context, s *session, text string, origin *rzd.PointCode) (State, []Reply) {
	query := strings.TrimSpace(text)
	if query == "" {
		if origin == nil {
			return AwaitingOrigin{}, []Reply{{Text: msgAskOrigin}}
		}
		return AwaitingDestination{Origin: *origin}, []Reply{{Text: msgOriginChosen(origin.Name)}}
	}

	what := "получения кодов отправления"
	if origin != nil {
		what = "получения кодов прибытия"
	}

	points, err := c.upstream.ResolvePoints(ctx, query, c.retryBudget)
	if err != nil {
		c.logger.Warn("point lookup failed", "query", query, "error", err)
		return Idle{}, []Reply{{Text: msgFailure(what, err)}}
	}
	if len(points) == 0 {
		return Idle{}, []Reply{{Text: msgNoPoints(query)}}
	}

	gen := c.nextGeneration()
	buttons := make([]Button, 0, len(points))
	for i, p := range points {
		buttons = append(buttons, Button{Label: p.Name, Token: choiceToken(prefixPoint, gen, i+1)})
	}

	if origin == nil {
		return AwaitingOriginChoice{Generation: gen, Candidates: points},
			[]Reply{{Text: msgChooseOrigin, Buttons: buttons}}
	}
	return AwaitingDestinationChoice{Generation: gen, Origin: *origin, Candidates: points},
		[]Reply{{Text: msgChooseDest, Buttons: buttons}}
}

func (c *Coordinator) schedule(ctx context.Context, s *session, st AwaitingDate, text string) (State, []Reply) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(text))
	if err != nil {
		return st, []Reply{{Text: msgBadDate(text)}}
	}

	listings, err := c.upstream.Schedule(ctx, st.Origin.Code, st.Destination.Code, date, c.retryBudget)
	if err != nil {
		c.logger.Warn("schedule lookup failed", "origin", st.Origin.Code, "destination", st.Destination.Code, "error", err)
		return Idle{}, []Reply{{Text: msgFailure("получения поездов", err)}}
	}

	trains := c.filterTrains(listings)
	if len(trains) == 0 {
		return Idle{}, []Reply{{Text: msgNothingFound}}
	}

	gen := c.nextGeneration()
	dateText := date.Format(rzd.DateLayout)
	buttons := make([]Button, 0, len(trains)+1)
	for i, t := range trains {
		buttons = append(buttons, Button{Label: trainLabel(i, t), Token: choiceToken(prefixTrain, gen, i+1)})
	}
	if token := watchDayToken(st.Origin.Code, st.Destination.Code, dateText); fits(token) {
		buttons = append(buttons, Button{Label: btnWatchDay, Token: token})
	} else {
		c.logger.Warn("watch token too long, omitting button", "token", token)
	}

	next := AwaitingTrainChoice{
		Generation:  gen,
		Origin:      st.Origin,
		Destination: st.Destination,
		Date:        dateText,
		Trains:      trains,
	}
	return next, []Reply{{Text: renderTrains(trains), Buttons: buttons}}
}

// filterTrains keeps listings with free seats of the target class.
func (c *Coordinator) filterTrains(listings []rzd.TrainListing) []TrainOption {
	var trains []TrainOption
	for _, l := range listings {
		if free := l.FreeSeatsOfType(c.reducer.CarType()); free > 0 {
			trains = append(trains, TrainOption{Listing: l, FreeSeats: free})
		}
	}
	return trains
}

func (c *Coordinator) carriages(ctx context.Context, s *session, st AwaitingTrainChoice, idx int) (State, []Reply) {
	train := st.Trains[idx-1].Listing
	ref := rzd.TrainRef{
		Origin:      st.Origin.Code,
		Destination: st.Destination.Code,
		Date:        train.Date,
		Time:        train.Time,
		Number:      train.Number,
	}

	cars, err := c.upstream.Carriages(ctx, ref, c.retryBudget)
	if err != nil {
		c.logger.Warn("carriage lookup failed", "train", ref.Number, "error", err)
		return Idle{}, []Reply{{Text: msgFailure("получения вагонов", err)}}
	}

	s.rememberRoute(st.Origin, st.Destination)

	var buttons []Button
	if token := watchTrainToken(ref.Origin, ref.Destination, ref.Date, ref.Time, ref.Number); fits(token) {
		buttons = append(buttons, Button{Label: btnWatchTrain, Token: token})
	} else {
		c.logger.Warn("watch token too long, omitting button", "token", token)
	}
	buttons = append(buttons, Button{Label: btnNoWatch, Token: tokenNoWatch})

	blocks := c.reducer.ReduceAll(cars)
	text := renderBlocks(blocks) + "\n" + msgReset
	return Idle{}, []Reply{{Text: text, Buttons: buttons}}
}
