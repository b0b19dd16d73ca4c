package orch

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/ProximityVoice/internal/app"
	"github.com/dkeye/ProximityVoice/internal/core"
	"github.com/dkeye/ProximityVoice/internal/metrics"
	"github.com/dkeye/ProximityVoice/internal/protocol"
	"github.com/rs/zerolog/log"
)

// BoomDuration is how long a host override lasts.
const BoomDuration = 5 * time.Second

var ErrNoConnection = errors.New("connection not registered")

type Orchestrator struct {
	Registry *app.Registry
	Lobbies  core.LobbyManager
	Policy   app.Policy
	Metrics  *metrics.Metrics

	// AfterFunc schedules the boom revert; time.AfterFunc when nil.
	AfterFunc func(d time.Duration, f func())

	// publishMu orders listings: the last one sent is the newest one.
	publishMu sync.Mutex
}

func New(reg *app.Registry, lobbies core.LobbyManager, policy app.Policy, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		Registry: reg,
		Lobbies:  lobbies,
		Policy:   policy,
		Metrics:  m,
	}
}

func (o *Orchestrator) after(d time.Duration, f func()) {
	if o.AfterFunc != nil {
		o.AfterFunc(d, f)
		return
	}
	time.AfterFunc(d, f)
}

// OnConnect registers a fresh signal connection.
func (o *Orchestrator) OnConnect(conn core.SignalConnection, token string, cancel func()) {
	o.Registry.BindSignal(conn, token, cancel)
	o.Metrics.ConnOpened()
}

// OnDisconnect runs the same path as an explicit leave, without the reply.
func (o *Orchestrator) OnDisconnect(cid core.ConnID) {
	o.leave(cid, false)
	o.Registry.Unbind(cid)
	o.Metrics.ConnClosed()
	log.Info().Str("module", "app.orch").Str("cid", cid.Short()).Msg("disconnected")
}

// handlePublish applies the backpressure policy to every congested receiver.
func (o *Orchestrator) handlePublish(lobby core.LobbyService, res core.PublishResult) {
	if len(res.Dropped) == 0 {
		return
	}
	o.Metrics.Dropped(len(res.Dropped))
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(lobby, slow) {
		case app.KickMember:
			o.kick(slow)
		case app.DropFrame, app.NoAction:
		}
	}
}

// kick closes the transport; the read pump then runs OnDisconnect.
func (o *Orchestrator) kick(conn core.SignalConnection) {
	log.Warn().Str("module", "app.orch").Str("cid", conn.ID().Short()).Msg("kicking slow connection")
	o.Registry.Cancel(conn.ID())
	go conn.Close()
}

// PublishLobbies pushes the current public listing to every connection.
func (o *Orchestrator) PublishLobbies() {
	o.publishMu.Lock()
	data, err := json.Marshal(protocol.LobbiesUpdated{
		Type:    protocol.TypeLobbiesUpdated,
		Lobbies: o.Lobbies.PublicListing(),
	})
	if err != nil {
		o.publishMu.Unlock()
		log.Error().Err(err).Str("module", "app.orch").Msg("marshal listing")
		return
	}
	res := core.PublishResult{}
	for _, conn := range o.Registry.Connections() {
		if err := conn.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, conn)
			continue
		}
		res.SendTo++
	}
	o.Metrics.SetLobbies(o.Lobbies.Count())
	o.publishMu.Unlock()

	o.handlePublish(nil, res)
}
