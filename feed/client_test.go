package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scrimbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedServer(t *testing.T, segmentsByQuery map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/match", r.URL.Path)
		segments, ok := segmentsByQuery[r.URL.Query().Get("q")]
		if !ok {
			segments = ""
		}
		fmt.Fprintf(w, `{"data":{"segments":[%s]}}`, segments)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_Upcoming(t *testing.T) {
	server := newFeedServer(t, map[string]string{
		"upcoming": `{"team1":"Sentinels","team2":"Fnatic","match_page":"https://www.vlr.gg/12345/sentinels-vs-fnatic","match_event":"Champions","match_series":"Playoffs","time_until_match":"2h 10m"}`,
	})

	client := NewClient(server.URL, time.Second)
	matches, err := client.Upcoming(context.Background())
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Equal(t, "/12345/sentinels-vs-fnatic", matches[0].ID)
	assert.Equal(t, "Sentinels", matches[0].Team1)
	assert.Equal(t, "Fnatic", matches[0].Team2)
	assert.Equal(t, "Champions", matches[0].Event)
	assert.Equal(t, models.MatchStatusUpcoming, matches[0].Status)
}

func TestClient_ResultsDeriveWinner(t *testing.T) {
	server := newFeedServer(t, map[string]string{
		"results": `{"team1":"Sentinels","team2":"Fnatic","score1":"2","score2":"1","match_page":"/12345/sentinels-vs-fnatic"},` +
			`{"team1":"NRG","team2":"Cloud9","score1":"1","score2":"2","match_page":"/12346/nrg-vs-cloud9"},` +
			`{"team1":"100T","team2":"LOUD","score1":"0","score2":"0","match_page":"/12347/100t-vs-loud"}`,
	})

	client := NewClient(server.URL, time.Second)
	matches, err := client.Results(context.Background())
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, models.MatchStatusFinished, matches[0].Status)
	assert.Equal(t, "Sentinels", matches[0].Winner)

	assert.Equal(t, models.MatchStatusFinished, matches[1].Status)
	assert.Equal(t, "Cloud9", matches[1].Winner)

	// No score difference means the series never concluded
	assert.Equal(t, models.MatchStatusVoided, matches[2].Status)
	assert.Empty(t, matches[2].Winner)
}

func TestClient_MatchChecksResultsBeforeLive(t *testing.T) {
	// The same match appears in both feeds, as happens right after a series
	// ends. The finished view must win.
	server := newFeedServer(t, map[string]string{
		"results":    `{"team1":"Sentinels","team2":"Fnatic","score1":"2","score2":"0","match_page":"/12345/sentinels-vs-fnatic"}`,
		"live_score": `{"team1":"Sentinels","team2":"Fnatic","score1":"1","score2":"0","match_page":"/12345/sentinels-vs-fnatic"}`,
	})

	client := NewClient(server.URL, time.Second)
	match, err := client.Match(context.Background(), "/12345/sentinels-vs-fnatic")
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusFinished, match.Status)
	assert.Equal(t, "Sentinels", match.Winner)
}

func TestClient_MatchUnknownWhenUnlisted(t *testing.T) {
	server := newFeedServer(t, map[string]string{})

	client := NewClient(server.URL, time.Second)
	match, err := client.Match(context.Background(), "/99999/never-listed")
	require.NoError(t, err)

	assert.Equal(t, "/99999/never-listed", match.ID)
	assert.Equal(t, models.MatchStatusUnknown, match.Status)
}

func TestClient_FetchErrorsOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, time.Second)
	_, err := client.Upcoming(context.Background())
	assert.Error(t, err)
}

func TestNormalizeMatchID(t *testing.T) {
	assert.Equal(t, "/12345/sentinels-vs-fnatic", NormalizeMatchID("https://www.vlr.gg/12345/sentinels-vs-fnatic"))
	assert.Equal(t, "/12345/sentinels-vs-fnatic", NormalizeMatchID("/12345/sentinels-vs-fnatic"))
	assert.Equal(t, "", NormalizeMatchID(""))
}
