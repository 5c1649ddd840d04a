// ABOUTME: Submit/poll/retry mechanics shared by every RZD query
// ABOUTME: Hides synchronous answers and RID jobs behind one bounded Submit call

package rzd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/2389/rail-scout/internal/errors"
)

const (
	// DefaultPollInterval is the wait before each RID poll.
	DefaultPollInterval = 2 * time.Second

	// DefaultPollAttempts caps the RID poll loop of one submission.
	DefaultPollAttempts = 5

	// DefaultRetryBudget is the retry budget the bot passes to every query.
	DefaultRetryBudget = 5

	// maxResponseBytes bounds how much of an upstream body is read.
	maxResponseBytes = 8 << 20
)

const (
	ridField    = "RID"
	resultField = "result"
	failResult  = "FAIL"
)

// Request describes one upstream query.
type Request struct {
	Op        string     // short name used in errors and logs
	URL       string     // endpoint without query string
	Query     url.Values // query for the initial GET
	PollQuery url.Values // query for RID polls; nil reuses Query
}

// Poller submits requests and follows RID jobs to completion.
type Poller struct {
	client     *http.Client
	identities IdentitySource
	interval   time.Duration
	attempts   int
	wait       func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithHTTPClient sets the HTTP client. A fresh cookie jar is still attached
// per submission attempt.
func WithHTTPClient(c *http.Client) PollerOption {
	return func(p *Poller) { p.client = c }
}

// WithPollInterval sets the wait before each RID poll.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d >= 0 {
			p.interval = d
		}
	}
}

// WithPollAttempts sets the RID poll cap.
func WithPollAttempts(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPoller creates a Poller drawing identities from ids.
func NewPoller(ids IdentitySource, opts ...PollerOption) *Poller {
	p := &Poller{
		client:     &http.Client{Timeout: 30 * time.Second},
		identities: ids,
		interval:   DefaultPollInterval,
		attempts:   DefaultPollAttempts,
		wait:       sleepContext,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "rzd")
	return p
}

// Submit runs req until it yields a final document or fails. Refusals and
// blocked responses are retried with a new identity while retryBudget lasts.
// Transport errors, decode errors and poll exhaustion are returned at once.
func (p *Poller) Submit(ctx context.Context, req Request, retryBudget int) ([]byte, error) {
	budget := retryBudget
	for {
		body, err := p.attempt(ctx, req)
		if err == nil {
			return body, nil
		}

		var appErr *apperrors.Error
		if !errors.As(err, &appErr) || !appErr.Retryable() {
			return nil, err
		}
		if budget <= 0 {
			return nil, apperrors.Wrap(apperrors.KindUpstreamRejected, req.Op, "exhausted retry budget", err)
		}
		budget--
		p.logger.Warn("upstream refused request, rotating identity",
			"op", req.Op,
			"retries_left", budget,
			"error", err,
		)
	}
}

// attempt performs one submission: the initial GET and, if the backend
// answered with a job id, the poll loop. The identity and cookie jar are
// fixed for the whole attempt.
func (p *Poller) attempt(ctx context.Context, req Request) ([]byte, error) {
	ident := p.identities.Next()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, apperrors.Transport(req.Op, fmt.Errorf("creating cookie jar: %w", err))
	}
	client := *p.client
	client.Jar = jar

	body, doc, err := p.do(ctx, &client, ident, req.Op, http.MethodGet, req.URL, req.Query, nil)
	if err != nil {
		return nil, err
	}

	rid, pending, err := classify(req.Op, doc)
	if err != nil {
		return nil, err
	}
	if !pending {
		return body, nil
	}

	pollQuery := req.PollQuery
	if pollQuery == nil {
		pollQuery = req.Query
	}
	form := url.Values{"rid": {rid}}.Encode()

	p.logger.Debug("upstream accepted job", "op", req.Op, "rid", rid)

	for i := 1; i <= p.attempts; i++ {
		if err := p.wait(ctx, p.interval); err != nil {
			return nil, apperrors.Transport(req.Op, err)
		}

		body, doc, err = p.do(ctx, &client, ident, req.Op, http.MethodPost, req.URL, pollQuery, []byte(form))
		if err != nil {
			return nil, err
		}

		_, pending, err = classify(req.Op, doc)
		if err != nil {
			return nil, err
		}
		if !pending {
			return body, nil
		}
		p.logger.Debug("job still pending", "op", req.Op, "rid", rid, "poll", i)
	}

	return nil, apperrors.New(apperrors.KindPollExhausted, req.Op, "exhausted polling budget")
}

// do sends one HTTP request and decodes the body as a generic document.
func (p *Poller) do(ctx context.Context, client *http.Client, ident Identity, op, method, endpoint string, query url.Values, form []byte) ([]byte, map[string]any, error) {
	target := endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if form != nil {
		reqBody = bytes.NewReader(form)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, nil, apperrors.Transport(op, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("User-Agent", ident.UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	if form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, nil, apperrors.Transport(op, fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, apperrors.Transport(op, fmt.Errorf("reading response: %w", err))
	}

	if isBlocked(resp.StatusCode) {
		return nil, nil, apperrors.Rejected(op, fmt.Sprintf("blocked by upstream (status %d)", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, apperrors.Transport(op, fmt.Errorf("upstream returned status %d", resp.StatusCode))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, apperrors.Decode(op, err)
	}

	return body, doc, nil
}

// classify applies the terminal/pending rule to a decoded document.
func classify(op string, doc map[string]any) (rid string, pending bool, err error) {
	if result, ok := doc[resultField].(string); ok && result == failResult {
		return "", false, apperrors.Rejected(op, "upstream returned FAIL")
	}

	raw, ok := doc[ridField]
	if !ok || raw == nil {
		return "", false, nil
	}

	switch v := raw.(type) {
	case string:
		rid = v
	case json.Number:
		rid = v.String()
	default:
		return "", false, apperrors.Decode(op, fmt.Errorf("unexpected RID type %T", raw))
	}
	if strings.TrimSpace(rid) == "" {
		return "", false, apperrors.Decode(op, errors.New("empty RID"))
	}
	return rid, true, nil
}

func isBlocked(status int) bool {
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
