// Package telegram connects the conversation coordinator to the Telegram
// Bot API using long polling.
//
// Commands (/start, /cancel, /tasks, /help) and inline button callbacks
// are registered as go-telegram/bot handlers; any other text goes to the
// default handler. Each update is processed on its own goroutine so a slow
// upstream query in one chat never stalls the others.
package telegram
