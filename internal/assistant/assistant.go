// Package assistant orchestrates one conversational turn: session resolution,
// small talk, retrieval, composition, and history bookkeeping. It also keeps
// a short provenance trail per session so later feedback can be attributed to
// the knowledge entries that produced a response.
package assistant

import (
	"context"
	"sync"

	"github.com/mirutec/sage/internal/compose"
	"github.com/mirutec/sage/internal/log"
	"github.com/mirutec/sage/internal/retrieval"
	"github.com/mirutec/sage/internal/session"
)

// provenanceDepth bounds the per-session trail. Feedback almost always rates
// the latest turn; a few extra cover delayed submissions.
const provenanceDepth = 8

// Retriever ranks knowledge entries for a query.
type Retriever interface {
	Retrieve(query string, topK int, minScore float64) []retrieval.Match
}

// Sessions is the history surface the assistant needs.
type Sessions interface {
	GetOrCreate(id string) string
	Append(sessionID, role, content string) session.Message
}

// Composer phrases matches into replies.
type Composer interface {
	SmallTalk(query string) (string, bool)
	Compose(ctx context.Context, query string, matches []retrieval.Match) compose.Reply
}

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	SessionID string
	Reply     compose.Reply
}

// turnTrace pairs a delivered response with the entries behind it.
type turnTrace struct {
	response string
	entryIDs []string
}

// Assistant runs chat turns. Safe for concurrent use; turns on the same
// session serialize on the session manager's per-conversation lock.
type Assistant struct {
	sessions  Sessions
	retriever Retriever
	composer  Composer
	logger    log.Logger

	mu     sync.Mutex
	traces map[string][]turnTrace
}

// New creates an Assistant.
func New(sessions Sessions, retriever Retriever, composer Composer, logger log.Logger) *Assistant {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Assistant{
		sessions:  sessions,
		retriever: retriever,
		composer:  composer,
		logger:    logger,
		traces:    make(map[string][]turnTrace),
	}
}

// Chat answers one user message. A blank sessionID starts a new conversation;
// the effective ID is returned so the client can continue it.
func (a *Assistant) Chat(ctx context.Context, message, sessionID string) TurnResult {
	sessionID = a.sessions.GetOrCreate(sessionID)
	a.sessions.Append(sessionID, session.RoleUser, message)

	var reply compose.Reply
	if text, ok := a.composer.SmallTalk(message); ok {
		reply = compose.Reply{Text: text}
	} else {
		matches := a.retriever.Retrieve(message, 0, 0)
		reply = a.composer.Compose(ctx, message, matches)
	}

	a.sessions.Append(sessionID, session.RoleAssistant, reply.Text)
	a.remember(sessionID, reply)

	a.logger.Info("chat turn completed",
		"session_id", sessionID,
		"citations", len(reply.Citations),
	)
	return TurnResult{SessionID: sessionID, Reply: reply}
}

// remember appends the turn's provenance, trimming the trail to depth.
// Small-talk and fallback turns are recorded with no entry IDs so feedback on
// them degrades to stats-only.
func (a *Assistant) remember(sessionID string, reply compose.Reply) {
	ids := make([]string, 0, len(reply.Citations))
	for _, c := range reply.Citations {
		ids = append(ids, c.EntryID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	trail := append(a.traces[sessionID], turnTrace{response: reply.Text, entryIDs: ids})
	if len(trail) > provenanceDepth {
		trail = trail[len(trail)-provenanceDepth:]
	}
	a.traces[sessionID] = trail
}

// Provenance resolves which entries produced botResponse in the session,
// newest turn first. An empty botResponse returns the latest turn's entries.
// Unknown sessions or unmatched responses yield nil, which the feedback store
// treats as a stats-only submission.
func (a *Assistant) Provenance(sessionID, botResponse string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	trail := a.traces[sessionID]
	for i := len(trail) - 1; i >= 0; i-- {
		if botResponse == "" || trail[i].response == botResponse {
			out := make([]string, len(trail[i].entryIDs))
			copy(out, trail[i].entryIDs)
			return out
		}
	}
	return nil
}
