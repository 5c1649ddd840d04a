// Package rzd is the client for the RZD passenger booking backend.
//
// # Protocol
//
// The backend is undocumented and answers in one of three ways:
//
//   - a final JSON document (synchronous answer)
//   - {"RID": <id>}: the query was accepted as a job; POST rid=<id> to the
//     same path until the document no longer carries an RID
//   - {"result": "FAIL"}: the query was refused
//
// Poller hides this behind a single Submit call. Every submission attempt
// draws a fresh Identity (User-Agent) from an IdentitySource and a fresh
// cookie jar, since the backend ties jobs to the session cookie. Refusals
// and blocked statuses (403, 429) consume the caller's retry budget; the job
// poll loop has its own fixed cap.
//
// # Queries
//
// Client wraps the Poller with the three lookups the bot needs:
//
//   - ResolvePoints: station name fragment to express codes
//   - Schedule: origin, destination and date to train listings
//   - Carriages: one train to per-car seat ranges
//
// Decode failures are reported as errors.KindDecode so that "the service is
// down" and "the response shape changed" can be told apart in logs.
package rzd
