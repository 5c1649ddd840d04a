// ABOUTME: Telegram bridge: routes updates to the coordinator and renders replies
// ABOUTME: Handles allow-listing, update dedupe, button keyboards and long texts

package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/2389/rail-scout/internal/dedupe"
	"github.com/2389/rail-scout/internal/dialog"
)

// maxMessageRunes is Telegram's limit on one message text.
const maxMessageRunes = 4096

// tapWindow suppresses the same button pressed twice in quick succession.
const tapWindow = 2 * time.Second

// sendTimeout bounds one Bot API call.
const sendTimeout = 30 * time.Second

const helpText = "/start - новый поиск купе\n/tasks - сохранённые задачи\n/cancel - сбросить текущий диалог"

// Conversation is the coordinator as seen by the bridge.
type Conversation interface {
	Start(ctx context.Context, chatID int64) []dialog.Reply
	OnCancel(ctx context.Context, chatID int64) []dialog.Reply
	Tasks(ctx context.Context, chatID int64) []dialog.Reply
	OnUserText(ctx context.Context, chatID int64, text string) []dialog.Reply
	OnUserChoice(ctx context.Context, chatID int64, token string) []dialog.Reply
}

// Messenger is the subset of *bot.Bot the bridge sends through.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Config configures the bridge.
type Config struct {
	Token        string
	APIURL       string  // optional Bot API server override
	AllowedChats []int64 // empty allows every chat
	Logger       *slog.Logger
}

// Bridge connects Telegram to the coordinator.
type Bridge struct {
	conv    Conversation
	out     Messenger
	bot     *bot.Bot
	allowed map[int64]bool
	updates *dedupe.Cache[int64]
	taps    *dedupe.Cache[string]
	logger  *slog.Logger

	// ctx is the parent context for update processing goroutines
	ctx context.Context
	wg  sync.WaitGroup

	qmu    sync.Mutex
	queues map[int64]*chatQueue // present while the chat's drain goroutine runs
}

// job is one update's work for a chat.
type job func(ctx context.Context) []dialog.Reply

// chatQueue holds a chat's pending jobs in arrival order.
type chatQueue struct {
	pending []job
	cancel  context.CancelFunc // cancels the running job, nil between jobs
}

// New creates a bridge with a live Bot API client.
func New(cfg Config, conv Conversation) (*Bridge, error) {
	b := newBridge(conv, nil, cfg.AllowedChats, cfg.Logger)

	opts := []bot.Option{
		bot.WithDefaultHandler(b.handleDefault),
		bot.WithErrorsHandler(func(err error) {
			b.logger.Error("telegram polling error", "error", err)
		}),
	}
	if cfg.APIURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.APIURL))
	}

	tb, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}
	b.bot = tb
	b.out = tb
	b.register(tb)
	return b, nil
}

func newBridge(conv Conversation, out Messenger, allowed []int64, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		conv:    conv,
		out:     out,
		allowed: make(map[int64]bool, len(allowed)),
		updates: dedupe.New[int64](dedupe.DefaultTTL, dedupe.DefaultSize),
		taps:    dedupe.New[string](tapWindow, dedupe.DefaultSize),
		logger:  logger.With("component", "telegram"),
		ctx:     context.Background(),
		queues:  make(map[int64]*chatQueue),
	}
	for _, id := range allowed {
		b.allowed[id] = true
	}
	return b
}

func (b *Bridge) register(tb *bot.Bot) {
	tb.RegisterHandler(bot.HandlerTypeMessageText, "start", bot.MatchTypeCommand, b.handleStart)
	tb.RegisterHandler(bot.HandlerTypeMessageText, "cancel", bot.MatchTypeCommand, b.handleCancel)
	tb.RegisterHandler(bot.HandlerTypeMessageText, "tasks", bot.MatchTypeCommand, b.handleTasks)
	tb.RegisterHandler(bot.HandlerTypeMessageText, "help", bot.MatchTypeCommand, b.handleHelp)
	tb.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, b.handleCallback)
}

// Run polls Telegram until ctx is cancelled, then waits for in-flight
// updates to finish.
func (b *Bridge) Run(ctx context.Context) error {
	if b.bot == nil {
		return fmt.Errorf("bridge has no telegram client")
	}
	b.ctx = ctx
	defer b.updates.Close()
	defer b.taps.Close()

	b.logger.Info("telegram bridge running", "allowed_chats", len(b.allowed))
	b.bot.Start(ctx)

	b.logger.Info("shutting down telegram bridge")
	b.wg.Wait()
	return nil
}

type action func(ctx context.Context, chatID int64) []dialog.Reply

// /start and /cancel supersede whatever the chat sent before them.
func (b *Bridge) handleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	b.dispatchReset(update, "start", b.conv.Start)
}

func (b *Bridge) handleCancel(ctx context.Context, _ *bot.Bot, update *models.Update) {
	b.dispatchReset(update, "cancel", b.conv.OnCancel)
}

func (b *Bridge) handleTasks(ctx context.Context, _ *bot.Bot, update *models.Update) {
	b.dispatchMessage(update, "tasks", b.conv.Tasks)
}

func (b *Bridge) handleHelp(ctx context.Context, _ *bot.Bot, update *models.Update) {
	b.dispatchMessage(update, "help", func(context.Context, int64) []dialog.Reply {
		return []dialog.Reply{{Text: helpText}}
	})
}

// handleDefault receives every text message no command handler claimed.
func (b *Bridge) handleDefault(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	text := update.Message.Text
	if strings.HasPrefix(text, "/") {
		b.dispatchMessage(update, "unknown_command", func(context.Context, int64) []dialog.Reply {
			return []dialog.Reply{{Text: helpText}}
		})
		return
	}
	b.dispatchMessage(update, "text", func(ctx context.Context, chatID int64) []dialog.Reply {
		return b.conv.OnUserText(ctx, chatID, text)
	})
}

func (b *Bridge) handleCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	q := update.CallbackQuery
	if q == nil {
		return
	}

	// Always acknowledge so the client stops its spinner.
	b.answer(q.ID)

	chatID := callbackChatID(q)
	if !b.accept(update.ID, chatID) {
		return
	}
	if b.taps.Seen(strconv.FormatInt(chatID, 10) + "|" + q.Data) {
		b.logger.Debug("dropping repeated button press", "chat_id", chatID, "data", q.Data)
		return
	}

	b.logger.Info("received button", "chat_id", chatID, "data", q.Data)
	data := q.Data
	b.enqueue(chatID, false, func(ctx context.Context) []dialog.Reply {
		return b.conv.OnUserChoice(ctx, chatID, data)
	})
}

func (b *Bridge) dispatchMessage(update *models.Update, kind string, act action) {
	b.dispatch(update, kind, false, act)
}

func (b *Bridge) dispatchReset(update *models.Update, kind string, act action) {
	b.dispatch(update, kind, true, act)
}

func (b *Bridge) dispatch(update *models.Update, kind string, preempt bool, act action) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if !b.accept(update.ID, chatID) {
		return
	}
	b.logger.Info("received message", "chat_id", chatID, "kind", kind, "content", truncate(update.Message.Text, 50))
	b.enqueue(chatID, preempt, func(ctx context.Context) []dialog.Reply { return act(ctx, chatID) })
}

// accept applies the chat allow-list and update dedupe.
func (b *Bridge) accept(updateID, chatID int64) bool {
	if !b.isChatAllowed(chatID) {
		b.logger.Debug("ignoring update from non-allowed chat", "chat_id", chatID)
		return false
	}
	if b.updates.Seen(updateID) {
		b.logger.Debug("dropping duplicate update", "update_id", updateID)
		return false
	}
	return true
}

func (b *Bridge) isChatAllowed(chatID int64) bool {
	return len(b.allowed) == 0 || b.allowed[chatID]
}

// enqueue appends fn to the chat's queue, starting a drain goroutine if
// none is running. Jobs of one chat run one at a time in arrival order;
// different chats run in parallel. A preempting job drops the chat's
// pending jobs and cancels the running one.
func (b *Bridge) enqueue(chatID int64, preempt bool, fn job) {
	b.qmu.Lock()
	defer b.qmu.Unlock()

	q, running := b.queues[chatID]
	if !running {
		q = &chatQueue{}
		b.queues[chatID] = q
		b.wg.Add(1)
		go b.drain(chatID, q)
	}
	if preempt {
		if len(q.pending) > 0 {
			b.logger.Debug("dropping superseded updates", "chat_id", chatID, "count", len(q.pending))
		}
		q.pending = nil
		if q.cancel != nil {
			q.cancel()
		}
	}
	q.pending = append(q.pending, fn)
}

// drain runs the chat's jobs until the queue is empty, then exits.
func (b *Bridge) drain(chatID int64, q *chatQueue) {
	defer b.wg.Done()
	for {
		b.qmu.Lock()
		if len(q.pending) == 0 {
			delete(b.queues, chatID)
			b.qmu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		ctx, cancel := context.WithCancel(b.ctx)
		q.cancel = cancel
		b.qmu.Unlock()

		replies := fn(ctx)

		b.qmu.Lock()
		q.cancel = nil
		b.qmu.Unlock()
		superseded := ctx.Err() != nil
		cancel()

		if superseded {
			b.logger.Debug("discarding replies of superseded update", "chat_id", chatID)
			continue
		}
		for _, r := range replies {
			b.send(chatID, r)
		}
	}
}

// send delivers one reply, splitting long texts. Buttons go on the last part.
func (b *Bridge) send(chatID int64, r dialog.Reply) {
	parts := splitText(r.Text, maxMessageRunes)
	for i, part := range parts {
		params := &bot.SendMessageParams{ChatID: chatID, Text: part}
		if i == len(parts)-1 && len(r.Buttons) > 0 {
			params.ReplyMarkup = keyboard(r.Buttons)
		}

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		_, err := b.out.SendMessage(ctx, params)
		cancel()
		if err != nil {
			b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
			return
		}
	}
}

func (b *Bridge) answer(callbackID string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if _, err := b.out.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callbackID}); err != nil {
		b.logger.Debug("failed to answer callback", "callback_id", callbackID, "error", err)
	}
}

// keyboard lays out one button per row.
func keyboard(buttons []dialog.Button) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(buttons))
	for _, btn := range buttons {
		rows = append(rows, []models.InlineKeyboardButton{{Text: btn.Label, CallbackData: btn.Token}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func callbackChatID(q *models.CallbackQuery) int64 {
	switch {
	case q.Message.Message != nil:
		return q.Message.Message.Chat.ID
	case q.Message.InaccessibleMessage != nil:
		return q.Message.InaccessibleMessage.Chat.ID
	default:
		// Private chats share the user's id.
		return q.From.ID
	}
}

// splitText cuts text into parts of at most limit runes, preferring line
// breaks.
func splitText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// truncate shortens a string to the given max rune count, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
