package app

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dkeye/ProximityVoice/internal/core"
	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type LobbyManagerImpl struct {
	mu      sync.RWMutex
	lobbies map[domain.LobbyID]core.LobbyService
}

func NewLobbyManager() core.LobbyManager {
	return &LobbyManagerImpl{lobbies: make(map[domain.LobbyID]core.LobbyService)}
}

func (f *LobbyManagerImpl) Create(name domain.LobbyName, host core.MemberSession, settings domain.Settings) (core.LobbyService, core.PublishResult) {
	if name == "" {
		name = domain.DefaultLobbyName
	}
	id := domain.LobbyID(uuid.NewString())
	lobby, res := core.NewLobby(id, name, host, settings)

	f.mu.Lock()
	f.lobbies[id] = lobby
	f.mu.Unlock()
	return lobby, res
}

func (f *LobbyManagerImpl) Get(id domain.LobbyID) (core.LobbyService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	l, ok := f.lobbies[id]
	return l, ok
}

func (f *LobbyManagerImpl) Remove(l core.LobbyService) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.lobbies[l.ID()]; ok && cur == l {
		delete(f.lobbies, l.ID())
		log.Info().Str("module", "app.lobbies").Str("lobby", string(l.ID())).Msg("lobby removed")
	}
}

func (f *LobbyManagerImpl) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.lobbies)
}

func (f *LobbyManagerImpl) PublicListing() []domain.LobbyListing {
	f.mu.RLock()
	all := make([]core.LobbyService, 0, len(f.lobbies))
	for _, l := range f.lobbies {
		all = append(all, l)
	}
	f.mu.RUnlock()

	out := make([]domain.LobbyListing, 0, len(all))
	for _, l := range all {
		if row, ok := l.Listing(); ok {
			out = append(out, row)
		}
	}
	slices.SortFunc(out, func(a, b domain.LobbyListing) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out
}
