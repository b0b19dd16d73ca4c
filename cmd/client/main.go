// Command client is a headless voice participant. It joins or creates a
// lobby, follows proximity and keeps one voice link per audible peer,
// sending silence and metering what it hears.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/ProximityVoice/internal/adapters/rtc"
	"github.com/dkeye/ProximityVoice/internal/client"
	"github.com/dkeye/ProximityVoice/internal/config"
	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/dkeye/ProximityVoice/internal/protocol"
)

const statsPeriod = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, prefs, err := config.LoadClient(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	source, err := rtc.NewSilenceSource("proximity-voice")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create audio source")
	}
	if err := source.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start audio source")
	}
	defer source.Stop()

	playback := rtc.NewMeterPlayback()
	factory, err := rtc.NewFactory(cfg.ICEServers, zerolog.WarnLevel, source, playback)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create webrtc api")
	}

	conn, err := client.Dial(ctx, cfg.ServerURL, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}
	defer conn.Close()
	prefs.SetServerURL(cfg.ServerURL)

	s := client.NewSession(conn, factory, prefs)
	if cfg.Username != "" {
		s.SetUsername(cfg.Username)
	}
	s.SetSensitivity(cfg.Sensitivity)
	s.OnEvent = func(typ string, _ []byte) {
		if typ == protocol.TypeError || typ == protocol.TypeLobbyCreated || typ == protocol.TypeJoinedLobby {
			v := s.View()
			log.Info().Str("event", typ).Str("lobby", string(v.LobbyID)).Str("self", string(v.Self)).Msg("lobby event")
		}
	}

	if cfg.Lobby != "" {
		err = s.JoinLobby(domain.LobbyID(cfg.Lobby), cfg.Password)
	} else {
		err = s.CreateLobby(cfg.LobbyName, cfg.Password)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to enter lobby")
	}

	go reportStats(ctx, s, playback)

	if err := s.Run(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("signal connection lost")
	}
	if err := prefs.Save(); err != nil {
		log.Debug().Err(err).Msg("preferences not saved")
	}
	log.Info().Msg("Client exited")
}

func reportStats(ctx context.Context, s *client.Session, p *rtc.MeterPlayback) {
	t := time.NewTicker(statsPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			stats := p.Stats()
			for peer, info := range s.Links().Links() {
				st := stats[peer]
				log.Info().
					Str("peer", string(peer)).
					Stringer("state", info.State).
					Float64("volume", st.Volume).
					Uint64("frames", st.Frames).
					Msg("link")
			}
		}
	}
}
