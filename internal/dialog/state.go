// ABOUTME: Conversation states as a closed sum type
// ABOUTME: Each state carries exactly the data the next transition needs

package dialog

import "github.com/2389/rail-scout/internal/rzd"

// State is one of the conversation states below.
type State interface {
	Name() string
	isState()
}

// Idle means no search is in progress.
type Idle struct{}

// AwaitingOrigin waits for the departure point name.
type AwaitingOrigin struct{}

// AwaitingOriginChoice offers the points matching the typed origin.
type AwaitingOriginChoice struct {
	Generation uint64
	Candidates []rzd.PointCode
}

// AwaitingDestination waits for the arrival point name.
type AwaitingDestination struct {
	Origin rzd.PointCode
}

// AwaitingDestinationChoice offers the points matching the typed destination.
type AwaitingDestinationChoice struct {
	Generation uint64
	Origin     rzd.PointCode
	Candidates []rzd.PointCode
}

// AwaitingDate waits for the departure date.
type AwaitingDate struct {
	Origin      rzd.PointCode
	Destination rzd.PointCode
}

// AwaitingTrainChoice offers the trains that still have compartment seats.
type AwaitingTrainChoice struct {
	Generation  uint64
	Origin      rzd.PointCode
	Destination rzd.PointCode
	Date        string
	Trains      []TrainOption
}

// TrainOption is one displayed train with its free seats of the target class.
type TrainOption struct {
	Listing   rzd.TrainListing
	FreeSeats int
}

func (Idle) Name() string                      { return "idle" }
func (AwaitingOrigin) Name() string            { return "awaiting_origin" }
func (AwaitingOriginChoice) Name() string      { return "awaiting_origin_choice" }
func (AwaitingDestination) Name() string       { return "awaiting_destination" }
func (AwaitingDestinationChoice) Name() string { return "awaiting_destination_choice" }
func (AwaitingDate) Name() string              { return "awaiting_date" }
func (AwaitingTrainChoice) Name() string       { return "awaiting_train_choice" }

func (Idle) isState()                      {}
func (AwaitingOrigin) isState()            {}
func (AwaitingOriginChoice) isState()      {}
func (AwaitingDestination) isState()       {}
func (AwaitingDestinationChoice) isState() {}
func (AwaitingDate) isState()              {}
func (AwaitingTrainChoice) isState()       {}

// Reply is one message to render, with optional buttons.
type Reply struct {
	Text    string
	Buttons []Button
}

// Button is a selectable option. Token is sent back through OnUserChoice.
type Button struct {
	Label string
	Token string
}
