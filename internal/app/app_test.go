package app

import (
	"sync"
	"testing"

	"github.com/dkeye/ProximityVoice/internal/core"
	"github.com/dkeye/ProximityVoice/internal/domain"
)

type stubConn struct {
	id core.ConnID

	mu     sync.Mutex
	frames []core.Frame
}

func (c *stubConn) ID() core.ConnID { return c.id }

func (c *stubConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	c.frames = append(c.frames, f)
	c.mu.Unlock()
	return nil
}

func (c *stubConn) Close() {}

func host(t *testing.T, name string) core.MemberSession {
	t.Helper()
	u, err := domain.NewUser(name)
	if err != nil {
		t.Fatal(err)
	}
	return core.NewMemberSession(domain.NewMember(u), &stubConn{id: core.NewConnID()})
}
