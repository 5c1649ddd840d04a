// Package errors defines the typed failure kinds shared by the upstream
// client, the conversation coordinator and the subscription store.
//
// Kinds split into two families. Transport, UpstreamRejected, Decode and
// PollBudgetExhausted describe the booking backend; InvalidUserInput and
// NotFound are user-facing outcomes and never indicate a defect. Storage
// covers the persistence collaborator.
//
// Use Is to test the kind of an error anywhere in a wrap chain:
//
//	if errors.Is(err, errors.KindDecode) {
//		// response shape changed upstream
//	}
package errors
