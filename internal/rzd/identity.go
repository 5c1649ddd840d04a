// ABOUTME: Outbound client identity rotation for upstream requests
// ABOUTME: UserAgentPool hands out User-Agent strings round-robin and is safe to share

package rzd

import "sync/atomic"

// Identity is the client-identifying part of an outbound request.
type Identity struct {
	UserAgent string
}

// IdentitySource yields the identity to use for the next attempt.
type IdentitySource interface {
	Next() Identity
}

// DefaultUserAgents is used when no user agents are configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.144 Mobile Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
}

// UserAgentPool rotates through a fixed list of user agents.
type UserAgentPool struct {
	agents []string
	cursor atomic.Uint64
}

// NewUserAgentPool creates a pool. An empty list falls back to DefaultUserAgents.
func NewUserAgentPool(agents []string) *UserAgentPool {
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	cp := make([]string, len(agents))
	copy(cp, agents)
	return &UserAgentPool{agents: cp}
}

// Next returns the next identity in round-robin order.
func (p *UserAgentPool) Next() Identity {
	n := p.cursor.Add(1) - 1
	return Identity{UserAgent: p.agents[n%uint64(len(p.agents))]}
}

// Len returns the number of distinct identities in the pool.
func (p *UserAgentPool) Len() int {
	return len(p.agents)
}
