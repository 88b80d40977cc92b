package safety

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultAcknowledgmentTTL is how long an acknowledgment token stays valid.
// Assigning an Azure custom role by hand takes minutes, not seconds.
const DefaultAcknowledgmentTTL = 30 * time.Minute

// pendingConfirmation holds the metadata for an outstanding token.
type pendingConfirmation struct {
	tool        string
	resource    string
	description string
	createdAt   time.Time
}

// ConfirmationTracker hands out single-use, time-limited tokens that let an
// MCP client acknowledge a manual step (such as assigning an Azure role) on
// a later call. A token is bound to the tool and resource it was issued for.
type ConfirmationTracker struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	tokens map[string]*pendingConfirmation
}

// NewConfirmationTracker returns a tracker whose tokens expire after ttl.
// A non-positive ttl selects DefaultAcknowledgmentTTL.
func NewConfirmationTracker(ttl time.Duration) *ConfirmationTracker {
	if ttl <= 0 {
		ttl = DefaultAcknowledgmentTTL
	}
	return &ConfirmationTracker{
		ttl:    ttl,
		now:    time.Now,
		tokens: make(map[string]*pendingConfirmation),
	}
}

// sweepExpired removes all tokens whose age exceeds the TTL. The caller must
// hold ct.mu.
func (ct *ConfirmationTracker) sweepExpired() {
	for token, pending := range ct.tokens {
		if ct.now().Sub(pending.createdAt) > ct.ttl {
			delete(ct.tokens, token)
		}
	}
}

// RequestConfirmation creates a token for tool acting on resource and returns
// it. The description is kept for diagnostics only.
func (ct *ConfirmationTracker) RequestConfirmation(tool, resource, description string) string {
	token := generateToken()

	ct.mu.Lock()
	ct.sweepExpired()
	ct.tokens[token] = &pendingConfirmation{
		tool:        tool,
		resource:    resource,
		description: description,
		createdAt:   ct.now(),
	}
	ct.mu.Unlock()

	return token
}

// Confirm consumes token and reports whether it was issued for the same tool
// and resource and has not expired. A token is removed on first use, even
// when it does not match.
func (ct *ConfirmationTracker) Confirm(token, tool, resource string) bool {
	if token == "" {
		return false
	}

	ct.mu.Lock()
	defer ct.mu.Unlock()

	pending, ok := ct.tokens[token]
	if !ok {
		return false
	}
	delete(ct.tokens, token)

	if ct.now().Sub(pending.createdAt) > ct.ttl {
		return false
	}
	return pending.tool == tool && pending.resource == resource
}

// Pending returns the number of outstanding tokens.
func (ct *ConfirmationTracker) Pending() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return len(ct.tokens)
}

// generateToken returns a cryptographically random hex-encoded token string.
func generateToken() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(b[:])
}
