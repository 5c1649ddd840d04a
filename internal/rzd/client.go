// ABOUTME: Typed RZD queries built on the Poller
// ABOUTME: Point suggestions, timetable listings and per-car seat ranges

package rzd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/2389/rail-scout/internal/errors"
)

const (
	// DefaultSuggestURL hosts the station suggestion API.
	DefaultSuggestURL = "https://ticket.rzd.ru/api/v1"

	// DefaultPassURL hosts the timetable and carriage endpoints.
	DefaultPassURL = "https://pass.rzd.ru"

	// DefaultLanguage is the language of station names and car types.
	DefaultLanguage = "ru"

	routesLayer    = "5827"
	carriagesLayer = "5764"

	// DateLayout is the date format the timetable endpoint expects.
	DateLayout = "02.01.2006"
)

// ClientConfig holds endpoint settings for Client.
type ClientConfig struct {
	SuggestURL string
	PassURL    string
	Language   string
}

// Client runs typed queries against the booking backend.
type Client struct {
	poller     *Poller
	suggestURL string
	passURL    string
	language   string
}

// NewClient creates a Client. Empty config fields use the defaults.
func NewClient(cfg ClientConfig, poller *Poller) *Client {
	c := &Client{
		poller:     poller,
		suggestURL: strings.TrimSuffix(cfg.SuggestURL, "/"),
		passURL:    strings.TrimSuffix(cfg.PassURL, "/"),
		language:   cfg.Language,
	}
	if c.suggestURL == "" {
		c.suggestURL = DefaultSuggestURL
	}
	if c.passURL == "" {
		c.passURL = DefaultPassURL
	}
	if c.language == "" {
		c.language = DefaultLanguage
	}
	return c
}

type suggestResponse struct {
	City []struct {
		Code string `json:"expressCode"`
		Name string `json:"name"`
	} `json:"city"`
}

// ResolvePoints returns the stations matching a name fragment, in upstream order.
func (c *Client) ResolvePoints(ctx context.Context, query string, retryBudget int) ([]PointCode, error) {
	req := Request{
		Op:  "suggest",
		URL: c.suggestURL + "/suggests",
		Query: url.Values{
			"GroupResults":        {"true"},
			"RailwaySortPriority": {"true"},
			"MergeSuburban":       {"true"},
			"Query":               {query},
			"Language":            {c.language},
			"TransportType":       {"rail"},
		},
	}

	body, err := c.poller.Submit(ctx, req, retryBudget)
	if err != nil {
		return nil, err
	}

	var resp suggestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Decode(req.Op, err)
	}

	points := make([]PointCode, 0, len(resp.City))
	for _, city := range resp.City {
		if city.Code == "" {
			continue
		}
		points = append(points, PointCode{Code: city.Code, Name: city.Name})
	}
	return points, nil
}

type timetableResponse struct {
	TP []struct {
		List []struct {
			Number string `json:"number"`
			Date   string `json:"date0"`
			Time   string `json:"time0"`
			Cars   []struct {
				Type           string `json:"type"`
				DisabledPerson bool   `json:"disabledPerson"`
				FreeSeats      int    `json:"freeSeats"`
			} `json:"cars"`
		} `json:"list"`
	} `json:"tp"`
}

// Schedule returns the trains running from origin to destination on date.
// The date is not range-checked; the backend decides what it accepts.
func (c *Client) Schedule(ctx context.Context, origin, destination string, date time.Time, retryBudget int) ([]TrainListing, error) {
	req := Request{
		Op:  "timetable",
		URL: c.timetableURL(),
		Query: url.Values{
			"layer_id":   {routesLayer},
			"dir":        {"0"},
			"tfl":        {"1"},
			"checkSeats": {"1"},
			"code0":      {origin},
			"code1":      {destination},
			"dt0":        {date.Format(DateLayout)},
			"md":         {"0"},
		},
		PollQuery: url.Values{"layer_id": {routesLayer}},
	}

	body, err := c.poller.Submit(ctx, req, retryBudget)
	if err != nil {
		return nil, err
	}

	var resp timetableResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Decode(req.Op, err)
	}
	if len(resp.TP) == 0 {
		return nil, apperrors.Decode(req.Op, fmt.Errorf("missing tp section"))
	}

	listings := make([]TrainListing, 0, len(resp.TP[0].List))
	for _, train := range resp.TP[0].List {
		listing := TrainListing{
			Number: train.Number,
			Date:   train.Date,
			Time:   train.Time,
			Cars:   make([]TrainCar, 0, len(train.Cars)),
		}
		for _, car := range train.Cars {
			listing.Cars = append(listing.Cars, TrainCar{
				Type:       car.Type,
				FreeSeats:  car.FreeSeats,
				Accessible: car.DisabledPerson,
			})
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

type carriagesResponse struct {
	Lst []struct {
		Cars []struct {
			Places         string `json:"places"`
			Number         string `json:"cnumber"`
			Type           string `json:"type"`
			DisabledPerson bool   `json:"disabledPerson"`
		} `json:"cars"`
	} `json:"lst"`
}

// Carriages returns the free seat ranges of every car of one train.
func (c *Client) Carriages(ctx context.Context, train TrainRef, retryBudget int) ([]CarSeatMap, error) {
	req := Request{
		Op:  "carriages",
		URL: c.timetableURL(),
		Query: url.Values{
			"layer_id": {carriagesLayer},
			"dir":      {"0"},
			"code0":    {train.Origin},
			"code1":    {train.Destination},
			"dt0":      {train.Date},
			"time0":    {train.Time},
			"tnum0":    {train.Number},
		},
		PollQuery: url.Values{"layer_id": {carriagesLayer}},
	}

	body, err := c.poller.Submit(ctx, req, retryBudget)
	if err != nil {
		return nil, err
	}

	var resp carriagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Decode(req.Op, err)
	}
	if len(resp.Lst) == 0 {
		return nil, apperrors.Decode(req.Op, fmt.Errorf("missing lst section"))
	}

	maps := make([]CarSeatMap, 0, len(resp.Lst[0].Cars))
	for _, car := range resp.Lst[0].Cars {
		maps = append(maps, CarSeatMap{
			Number:     car.Number,
			Type:       car.Type,
			Ranges:     splitPlaces(car.Places),
			Accessible: car.DisabledPerson,
		})
	}
	return maps, nil
}

func (c *Client) timetableURL() string {
	return c.passURL + "/timetable/public/" + c.language
}

// splitPlaces turns "1-4, 9-12" into ["1-4", "9-12"].
func splitPlaces(places string) []string {
	var ranges []string
	for _, tok := range strings.Split(places, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			ranges = append(ranges, tok)
		}
	}
	return ranges
}
