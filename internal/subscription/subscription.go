// ABOUTME: Subscription data type and the Store interface
// ABOUTME: Shared by the Badger, SQLite and in-memory backends

package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/2389/rail-scout/internal/errors"
)

// Kind distinguishes what a subscription watches.
type Kind string

const (
	KindDay   Kind = "day"   // every train between two points on one date
	KindTrain Kind = "train" // one train on one date
)

// Subscription is a standing request to re-check availability.
type Subscription struct {
	ID              string    `json:"id"`
	ChatID          int64     `json:"chat_id"`
	Kind            Kind      `json:"kind"`
	OriginCode      string    `json:"origin_code"`
	OriginName      string    `json:"origin_name,omitempty"`
	DestinationCode string    `json:"destination_code"`
	DestinationName string    `json:"destination_name,omitempty"`
	Date            string    `json:"date"`
	Time            string    `json:"time,omitempty"`
	TrainNumber     string    `json:"train_number,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate checks the fields every subscription needs.
func (s Subscription) Validate() error {
	switch s.Kind {
	case KindDay:
	case KindTrain:
		if s.TrainNumber == "" || s.Time == "" {
			return apperrors.InvalidInput("train subscription needs a train number and departure time")
		}
	default:
		return apperrors.InvalidInput(fmt.Sprintf("unknown subscription kind %q", s.Kind))
	}
	if s.OriginCode == "" || s.DestinationCode == "" || s.Date == "" {
		return apperrors.InvalidInput("subscription needs origin, destination and date")
	}
	return nil
}

// Label is a short human readable description.
func (s Subscription) Label() string {
	route := fmt.Sprintf("%s → %s", nameOr(s.OriginName, s.OriginCode), nameOr(s.DestinationName, s.DestinationCode))
	if s.Kind == KindTrain {
		return fmt.Sprintf("%s, %s %s, поезд %s", route, s.Date, s.Time, s.TrainNumber)
	}
	return fmt.Sprintf("%s, %s", route, s.Date)
}

func nameOr(name, code string) string {
	if name != "" {
		return name
	}
	return code
}

// Store is the persistence collaborator for subscriptions.
type Store interface {
	// Put writes sub under key and returns the key. An empty key gets a new id.
	Put(ctx context.Context, key string, sub Subscription) (string, error)

	// Get returns one subscription or a NotFound error.
	Get(ctx context.Context, key string) (Subscription, error)

	// Delete removes key and returns it. Missing keys are a NotFound error.
	Delete(ctx context.Context, key string) (string, error)

	// List returns every stored subscription keyed by id.
	List(ctx context.Context) (map[string]Subscription, error)

	Close() error
}

// ForChat filters a List result down to one chat.
func ForChat(all map[string]Subscription, chatID int64) []Subscription {
	var out []Subscription
	for _, sub := range all {
		if sub.ChatID == chatID {
			out = append(out, sub)
		}
	}
	sortByCreated(out)
	return out
}

// prepare assigns the id and creation time and validates sub.
func prepare(key string, sub Subscription, now time.Time) (Subscription, error) {
	if key == "" {
		key = sub.ID
	}
	if key == "" {
		key = uuid.New().String()
	}
	sub.ID = key
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now.UTC()
	}
	if err := sub.Validate(); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

func encode(sub Subscription) ([]byte, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "encode", "marshaling subscription", err)
	}
	return data, nil
}

func decode(data []byte) (Subscription, error) {
	var sub Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return Subscription{}, apperrors.Wrap(apperrors.KindStorage, "decode", "unmarshaling subscription", err)
	}
	return sub, nil
}

func notFound(key string) error {
	return apperrors.NotFound(fmt.Sprintf("subscription %s not found", key))
}
