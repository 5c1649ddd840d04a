// Package dialog drives the compartment search conversation.
//
// Each chat has one State. Events (start, free text, button tokens,
// cancel) move it along:
//
//	Idle -> AwaitingOrigin -> AwaitingOriginChoice -> AwaitingDestination
//	     -> AwaitingDestinationChoice -> AwaitingDate -> AwaitingTrainChoice -> Idle
//
// Upstream failures and dead ends return the chat to Idle. Bad user input
// (an unparsable date, an unknown point number) keeps the state so the user
// can try again, except in AwaitingTrainChoice where any bad index resets.
//
// Turns of one chat are serialised; chats run in parallel. Cancel and
// start never wait for an in-flight turn: they bump the session epoch and
// the stale turn's result is dropped when it finishes.
package dialog
