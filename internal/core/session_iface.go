package core

import (
	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/rs/xid"
)

// ConnID identifies one transport connection. It is never used as the
// domain identity; members are keyed by domain.UserID.
type ConnID string

func NewConnID() ConnID { return ConnID(xid.New().String()) }

// Short is handy for log lines.
func (c ConnID) Short() string {
	s := string(c)
	if len(s) < 6 {
		return s
	}
	return s[:3] + "." + s[len(s)-3:]
}

// MemberSession binds domain.Member and its transport endpoint.
// This is what a lobby stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}
