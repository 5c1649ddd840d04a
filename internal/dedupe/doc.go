// Package dedupe suppresses repeated Telegram updates.
//
// Long polling can redeliver an update after a reconnect, and users
// double-tap inline buttons. The bridge records every update id and
// callback query id in a bounded TTL cache and drops repeats.
package dedupe
