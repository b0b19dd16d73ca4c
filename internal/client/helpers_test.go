package client

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/ProximityVoice/internal/domain"
)

type sentSignal struct {
	kind    string
	target  domain.UserID
	payload json.RawMessage
}

type recordingSignaler struct {
	mu   sync.Mutex
	sent []sentSignal
}

func (s *recordingSignaler) SendSignal(kind string, target domain.UserID, payload json.RawMessage) error {
	s.mu.Lock()
	s.sent = append(s.sent, sentSignal{kind, target, payload})
	s.mu.Unlock()
	return nil
}

func user(id string, x, y float64) domain.User {
	return domain.User{ID: domain.UserID(id), Username: id, Position: domain.Position{X: x, Y: y}}
}

func view(self string, radius int, users ...domain.User) View {
	v := View{
		Self:     domain.UserID(self),
		LobbyID:  "lobby",
		HostID:   users[0].ID,
		Users:    make(map[domain.UserID]domain.User, len(users)),
		Settings: domain.PublicSettings{BoxSize: 1000, VoiceRadius: radius, MaxUsers: 10, IsPublic: true},
	}
	for _, u := range users {
		v.Users[u.ID] = u
		v.Order = append(v.Order, u.ID)
	}
	return v
}
