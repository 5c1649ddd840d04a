// ABOUTME: Tests for the submit/poll/retry loop against a scripted fake backend
// ABOUTME: Covers identity rotation, retry budget, RID polling and error kinds

package rzd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/2389/rail-scout/internal/errors"
)

// countingIdentities hands out agent-1, agent-2, ... and counts calls.
type countingIdentities struct {
	calls atomic.Int32
}

func (c *countingIdentities) Next() Identity {
	n := c.calls.Add(1)
	return Identity{UserAgent: fmt.Sprintf("agent-%d", n)}
}

type reply struct {
	status int
	body   string
	cookie *http.Cookie
}

type seenRequest struct {
	method      string
	userAgent   string
	body        string
	contentType string
	layerID     string
	cookie      string
}

// fakeBackend answers requests with a fixed script and records what it saw.
type fakeBackend struct {
	mu     sync.Mutex
	script []reply
	seen   []seenRequest
	server *httptest.Server
}

func newFakeBackend(t *testing.T, script ...reply) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{script: script}
	fb.server = httptest.NewServer(http.HandlerFunc(fb.handle))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	fb.mu.Lock()
	defer fb.mu.Unlock()

	var cookie string
	if c, err := r.Cookie("session"); err == nil {
		cookie = c.Value
	}
	fb.seen = append(fb.seen, seenRequest{
		method:      r.Method,
		userAgent:   r.Header.Get("User-Agent"),
		body:        string(body),
		contentType: r.Header.Get("Content-Type"),
		layerID:     r.URL.Query().Get("layer_id"),
		cookie:      cookie,
	})

	idx := len(fb.seen) - 1
	if idx >= len(fb.script) {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	next := fb.script[idx]
	if next.cookie != nil {
		http.SetCookie(w, next.cookie)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(next.status)
	_, _ = io.WriteString(w, next.body)
}

func (fb *fakeBackend) requests() []seenRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]seenRequest(nil), fb.seen...)
}

func ok(body string) reply { return reply{status: http.StatusOK, body: body} }

func blocked() reply { return reply{status: http.StatusForbidden, body: "<html>denied</html>"} }

func status(code int) reply { return reply{status: code, body: "{}"} }

func pending(rid string) reply { return ok(fmt.Sprintf(`{"RID": %q}`, rid)) }

func failResultReply() reply { return ok(`{"result": "FAIL"}`) }

func timetableReply() reply { return ok(`{"tp": [{"list": []}]}`) }

func newTestPoller(ids IdentitySource) (*Poller, *int) {
	waits := 0
	p := NewPoller(ids)
	p.wait = func(ctx context.Context, d time.Duration) error {
		waits++
		return ctx.Err()
	}
	return p, &waits
}

func request(fb *fakeBackend) Request {
	return Request{
		Op:        "timetable",
		URL:       fb.server.URL + "/timetable/public/ru",
		Query:     map[string][]string{"layer_id": {"5827"}, "code0": {"2000000"}},
		PollQuery: map[string][]string{"layer_id": {"5827"}},
	}
}

func TestSubmit_SynchronousAnswer(t *testing.T) {
	fb := newFakeBackend(t, timetableReply())
	ids := &countingIdentities{}
	p, waits := newTestPoller(ids)

	body, err := p.Submit(context.Background(), request(fb), 5)

	require.NoError(t, err)
	assert.JSONEq(t, `{"tp": [{"list": []}]}`, string(body))
	assert.Len(t, fb.requests(), 1)
	assert.Equal(t, int32(1), ids.calls.Load())
	assert.Equal(t, 0, *waits)
	assert.Equal(t, http.MethodGet, fb.requests()[0].method)
}

func TestSubmit_BlockedTwiceThenReady(t *testing.T) {
	fb := newFakeBackend(t, blocked(), blocked(), timetableReply())
	ids := &countingIdentities{}
	p, _ := newTestPoller(ids)

	body, err := p.Submit(context.Background(), request(fb), 5)

	require.NoError(t, err)
	assert.Contains(t, string(body), `"tp"`)
	// One initial identity plus exactly two rotations.
	assert.Equal(t, int32(3), ids.calls.Load())

	reqs := fb.requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "agent-1", reqs[0].userAgent)
	assert.Equal(t, "agent-2", reqs[1].userAgent)
	assert.Equal(t, "agent-3", reqs[2].userAgent)
}

func TestSubmit_TooManyRequestsIsBlocked(t *testing.T) {
	fb := newFakeBackend(t, status(http.StatusTooManyRequests), timetableReply())
	p, _ := newTestPoller(&countingIdentities{})

	_, err := p.Submit(context.Background(), request(fb), 1)

	require.NoError(t, err)
	assert.Len(t, fb.requests(), 2)
}

func TestSubmit_ZeroBudgetBlocked(t *testing.T) {
	fb := newFakeBackend(t, blocked(), timetableReply())
	p, _ := newTestPoller(&countingIdentities{})

	_, err := p.Submit(context.Background(), request(fb), 0)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindUpstreamRejected))
	assert.Contains(t, err.Error(), "exhausted retry budget")
	assert.Len(t, fb.requests(), 1)
}

func TestSubmit_BudgetRunsOut(t *testing.T) {
	fb := newFakeBackend(t, blocked(), blocked(), blocked(), timetableReply())
	p, _ := newTestPoller(&countingIdentities{})

	_, err := p.Submit(context.Background(), request(fb), 2)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindUpstreamRejected))
	assert.Len(t, fb.requests(), 3)
}

func TestSubmit_PollsUntilReady(t *testing.T) {
	fb := newFakeBackend(t, pending("abc"), pending("abc"), timetableReply())
	ids := &countingIdentities{}
	p, waits := newTestPoller(ids)

	body, err := p.Submit(context.Background(), request(fb), 5)

	require.NoError(t, err)
	assert.Contains(t, string(body), `"tp"`)
	assert.Equal(t, 2, *waits)
	assert.Equal(t, int32(1), ids.calls.Load(), "identity is fixed for one job")

	reqs := fb.requests()
	require.Len(t, reqs, 3)
	for _, r := range reqs[1:] {
		assert.Equal(t, http.MethodPost, r.method)
		assert.Equal(t, "rid=abc", r.body)
		assert.Equal(t, "application/x-www-form-urlencoded", r.contentType)
		assert.Equal(t, "5827", r.layerID)
		assert.Equal(t, "agent-1", r.userAgent)
	}
}

func TestSubmit_PollBudgetExhausted(t *testing.T) {
	fb := newFakeBackend(t,
		pending("abc"),
		pending("abc"), pending("abc"), pending("abc"), pending("abc"), pending("abc"),
		timetableReply(),
	)
	p, waits := newTestPoller(&countingIdentities{})

	_, err := p.Submit(context.Background(), request(fb), 5)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindPollExhausted))
	assert.Contains(t, err.Error(), "exhausted polling budget")
	assert.Equal(t, 5, *waits)

	reqs := fb.requests()
	require.Len(t, reqs, 6, "initial request plus exactly five polls")
	posts := 0
	for _, r := range reqs {
		if r.method == http.MethodPost {
			posts++
		}
	}
	assert.Equal(t, 5, posts)
}

func TestSubmit_PollCapIndependentOfBudget(t *testing.T) {
	fb := newFakeBackend(t, pending("x"), pending("x"), pending("x"))
	p, _ := newTestPoller(&countingIdentities{})
	p.attempts = 2

	_, err := p.Submit(context.Background(), request(fb), 0)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindPollExhausted))
	assert.Len(t, fb.requests(), 3)
}

func TestSubmit_NumericRID(t *testing.T) {
	fb := newFakeBackend(t, ok(`{"RID": 18446744073709}`), timetableReply())
	p, _ := newTestPoller(&countingIdentities{})

	_, err := p.Submit(context.Background(), request(fb), 5)

	require.NoError(t, err)
	reqs := fb.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "rid=18446744073709", reqs[1].body)
}

func TestSubmit_FailResultRetried(t *testing.T) {
	fb := newFakeBackend(t, failResultReply(), timetableReply())
	ids := &countingIdentities{}
	p, _ := newTestPoller(ids)

	_, err := p.Submit(context.Background(), request(fb), 1)

	require.NoError(t, err)
	assert.Equal(t, int32(2), ids.calls.Load())
}

func TestSubmit_FailResultExhaustsBudget(t *testing.T) {
	fb := newFakeBackend(t, failResultReply(), failResultReply(), timetableReply())
	p, _ := newTestPoller(&countingIdentities{})

	_, err := p.Submit(context.Background(), request(fb), 1)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindUpstreamRejected))
	assert.Len(t, fb.requests(), 2)
}

func TestSubmit_FailDuringPollRestartsJob(t *testing.T) {
	fb := newFakeBackend(t, pending("a"), failResultReply(), timetableReply())
	ids := &countingIdentities{}
	p, _ := newTestPoller(ids)

	_, err := p.Submit(context.Background(), request(fb), 1)

	require.NoError(t, err)
	reqs := fb.requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, http.MethodGet, reqs[2].method, "a refused job restarts with a new submission")
	assert.Equal(t, "agent-2", reqs[2].userAgent)
}

func TestSubmit_ServerErrorIsNotRetried(t *testing.T) {
	fb := newFakeBackend(t, status(http.StatusBadGateway), timetableReply())
	p, _ := newTestPoller(&countingIdentities{})

	_, err := p.Submit(context.Background(), request(fb), 5)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindTransport))
	assert.Len(t, fb.requests(), 1)
}

func TestSubmit_UnreachableHost(t *testing.T) {
	fb := newFakeBackend(t)
	req := request(fb)
	fb.server.Close()
	p, _ := newTestPoller(&countingIdentities{})

	_, err := p.Submit(context.Background(), req, 5)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindTransport))
}

func TestSubmit_MalformedJSONIsDecodeError(t *testing.T) {
	fb := newFakeBackend(t, ok(`<html>maintenance</html>`), timetableReply())
	p, _ := newTestPoller(&countingIdentities{})

	_, err := p.Submit(context.Background(), request(fb), 5)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindDecode))
	assert.Len(t, fb.requests(), 1)
}

func TestSubmit_CookiesKeptWithinJob(t *testing.T) {
	first := pending("abc")
	first.cookie = &http.Cookie{Name: "session", Value: "s1", Path: "/"}
	fb := newFakeBackend(t, first, timetableReply())
	p, _ := newTestPoller(&countingIdentities{})

	_, err := p.Submit(context.Background(), request(fb), 5)

	require.NoError(t, err)
	reqs := fb.requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].cookie)
	assert.Equal(t, "s1", reqs[1].cookie)
}

func TestSubmit_CancelledWhileWaiting(t *testing.T) {
	fb := newFakeBackend(t, pending("abc"), timetableReply())
	p, _ := newTestPoller(&countingIdentities{})

	ctx, cancel := context.WithCancel(context.Background())
	p.wait = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := p.Submit(ctx, request(fb), 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fb.requests(), 1)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
