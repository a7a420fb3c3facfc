package codeaction

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/furry-actions/actions"
	"github.com/odvcencio/furry-actions/menu"
)

// Session is one open menu. Candidates never change after the session
// starts; the selected row lives in the selection controller.
type Session struct {
	ID         ulid.ULID
	Candidates []actions.Candidate
	Plan       menu.Plan
	Opened     time.Time
}

func newSession(candidates []actions.Candidate, plan menu.Plan) *Session {
	return &Session{
		ID:         ulid.Make(),
		Candidates: candidates,
		Plan:       plan,
		Opened:     time.Now(),
	}
}
