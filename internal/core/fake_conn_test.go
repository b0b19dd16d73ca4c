package core

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/dkeye/ProximityVoice/internal/protocol"
)

var errFull = errors.New("full")

type fakeConn struct {
	id ConnID

	mu     sync.Mutex
	frames []Frame
	full   bool
	closed bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: ConnID(id)} }

func (c *fakeConn) ID() ConnID { return c.id }

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return errFull
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		t, _ := protocol.PeekType(f)
		out = append(out, t)
	}
	return out
}

func (c *fakeConn) last(t *testing.T, v any) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		t.Fatalf("%s: no frames", c.id)
	}
	if err := json.Unmarshal(c.frames[len(c.frames)-1], v); err != nil {
		t.Fatalf("%s: decode: %v", c.id, err)
	}
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

func newMember(t *testing.T, name string) (MemberSession, *fakeConn) {
	t.Helper()
	u, err := domain.NewUser(name)
	if err != nil {
		t.Fatal(err)
	}
	conn := newFakeConn(name)
	return NewMemberSession(domain.NewMember(u), conn), conn
}

func uid(ms MemberSession) domain.UserID { return ms.Meta().User.ID }
