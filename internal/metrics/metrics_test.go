package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SetLobbies(3)
	m.MemberJoined()
	m.MemberLeft()
	m.ConnOpened()
	m.ConnClosed()
	m.Relayed("rtc-offer")
	m.Undeliverable()
	m.Dropped(2)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.SetLobbies(2)
	m.Relayed("rtc-answer")
	m.Dropped(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		"proximity_voice_lobbies 2",
		`proximity_voice_relayed_signals_total{kind="rtc-answer"} 1`,
		"proximity_voice_dropped_frames_total 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output misses %q", want)
		}
	}
}
