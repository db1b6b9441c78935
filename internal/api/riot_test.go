package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"match-collector/internal/config"
	"match-collector/internal/domain"
	"match-collector/internal/request"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *RiotClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewRiotClient(&config.Config{
		RiotAPIKey:         "RGAPI-test",
		BaseURL:            srv.URL,
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
	}, zerolog.Nop())
}

func TestGetMatch(t *testing.T) {
	body := `{"gameId":2989,"participantIdentities":[
		{"participantId":1,"player":{"summonerId":43910145}},
		{"participantId":2,"player":{"summonerId":"enc-abc"}},
		{"participantId":3,"player":{}}
	]}`

	mux := http.NewServeMux()
	mux.HandleFunc("/lol/match/v4/matches/2989", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "RGAPI-test", r.Header.Get("X-Riot-Token"))
		w.Header().Set("X-App-Rate-Limit", "20:1,100:120")
		w.Header().Set("X-App-Rate-Limit-Count", "1:1,1:120")
		w.Write([]byte(body))
	})
	c := newTestClient(t, mux)

	doc, err := c.GetMatch(context.Background(), "2989")
	require.NoError(t, err)

	assert.Equal(t, domain.MatchID("2989"), doc.MatchID)
	assert.Equal(t, []domain.PlayerID{"43910145", "enc-abc"}, doc.Participants)
	assert.JSONEq(t, body, string(doc.Raw))

	info := c.GetRateLimitInfo()
	assert.Equal(t, "20:1,100:120", info.AppLimit)
	assert.Equal(t, "1:1,1:120", info.AppCount)
	assert.False(t, info.UpdatedAt.IsZero())
}

func TestGetMatchHistory(t *testing.T) {
	summonerLookups := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/lol/summoner/v4/summoners/s1", func(w http.ResponseWriter, r *http.Request) {
		summonerLookups++
		w.Write([]byte(`{"id":"s1","accountId":"acc-1","name":"someone"}`))
	})
	mux.HandleFunc("/lol/match/v4/matchlists/by-account/acc-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"420", "440"}, r.URL.Query()["queue"])
		w.Write([]byte(`{"matches":[
			{"gameId":11,"queue":420,"timestamp":1488600000000},
			{"gameId":"12","queue":440,"timestamp":1488400000000},
			{"gameId":13,"queue":9999,"timestamp":1488400000000}
		],"totalGames":3}`))
	})
	c := newTestClient(t, mux)

	refs, err := c.GetMatchHistory(context.Background(), "s1", request.QueueFilter{Queues: []int{420, 440}})
	require.NoError(t, err)
	require.Len(t, refs, 3)

	assert.Equal(t, domain.MatchID("11"), refs[0].MatchID)
	assert.Equal(t, 420, refs[0].Queue)
	assert.Equal(t, "CLASSIC", refs[0].Mode)
	assert.Equal(t, time.UnixMilli(1488600000000).UTC(), refs[0].Timestamp)
	assert.Equal(t, domain.MatchID("12"), refs[1].MatchID)
	assert.Empty(t, refs[2].Mode)

	// the account id is resolved once per summoner
	_, err = c.GetMatchHistory(context.Background(), "s1", request.QueueFilter{Queues: []int{420, 440}})
	require.NoError(t, err)
	assert.Equal(t, 1, summonerLookups)
}

func TestGetMatchHistoryUsesAccountFromMatch(t *testing.T) {
	var listPaths []string
	mux := http.NewServeMux()
	mux.HandleFunc("/lol/match/v4/matches/5", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"gameId":5,"participantIdentities":[
			{"participantId":1,"player":{"summonerId":"s1","accountId":"acc-1"}},
			{"participantId":2,"player":{"summonerId":"s2","accountId":"acc-2"}}
		]}`))
	})
	mux.HandleFunc("/lol/summoner/v4/summoners/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected summoner lookup %s", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/lol/match/v4/matchlists/by-account/", func(w http.ResponseWriter, r *http.Request) {
		listPaths = append(listPaths, r.URL.Path)
		w.Write([]byte(`{"matches":[]}`))
	})
	c := newTestClient(t, mux)

	doc, err := c.GetMatch(context.Background(), "5")
	require.NoError(t, err)
	require.Equal(t, []domain.PlayerID{"s1", "s2"}, doc.Participants)

	for _, p := range doc.Participants {
		_, err := c.GetMatchHistory(context.Background(), p, request.QueueFilter{})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{
		"/lol/match/v4/matchlists/by-account/acc-1",
		"/lol/match/v4/matchlists/by-account/acc-2",
	}, listPaths)
}

func TestGetMatchHistoryUnknownSummoner(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/lol/summoner/v4/summoners/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/lol/match/v4/matchlists/by-account/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected match list call %s", r.URL.Path)
	})
	c := newTestClient(t, mux)

	_, err := c.GetMatchHistory(context.Background(), "gone", request.QueueFilter{})
	assert.Equal(t, request.OutcomeNotFound, request.Classify(err))
}

func TestGetMatchHistoryWithoutMatches(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/lol/summoner/v4/summoners/s1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"accountId":"acc-1"}`))
	})
	mux.HandleFunc("/lol/match/v4/matchlists/by-account/acc-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	c := newTestClient(t, mux)

	refs, err := c.GetMatchHistory(context.Background(), "s1", request.QueueFilter{})
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestGetPlayerTiers(t *testing.T) {
	var order []string
	mux := http.NewServeMux()
	mux.HandleFunc("/lol/league/v4/entries/by-summoner/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/lol/league/v4/entries/by-summoner/"):]
		order = append(order, id)
		switch id {
		case "a":
			json.NewEncoder(w).Encode([]domain.TierEntry{{Queue: "RANKED_SOLO_5x5", Tier: "GOLD", Rank: "II"}})
		case "b":
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c := newTestClient(t, mux)

	got, err := c.GetPlayerTiers(context.Background(), []domain.PlayerID{"a", "b", "gone"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "gone"}, order)
	require.Len(t, got, 3)
	assert.Equal(t, "GOLD", got["a"][0].Tier)
	assert.Empty(t, got["b"])
	assert.Contains(t, got, domain.PlayerID("gone"))
	assert.Empty(t, got["gone"])
}

func TestGetPlayerTiersStopsOnRateLimit(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))

	_, err := c.GetPlayerTiers(context.Background(), []domain.PlayerID{"a", "b", "c"})

	var rl *request.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 2, calls)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		want    request.Outcome
		check   func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			want:   request.OutcomeNotFound,
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			headers: map[string]string{"Retry-After": "7", "X-Rate-Limit-Type": "method"},
			want:    request.OutcomeRateLimited,
			check: func(t *testing.T, err error) {
				var rl *request.RateLimitedError
				require.ErrorAs(t, err, &rl)
				assert.Equal(t, 7*time.Second, rl.RetryAfter)
				assert.Equal(t, "method", rl.Scope)
			},
		},
		{
			name:   "rate limited without retry-after",
			status: http.StatusTooManyRequests,
			want:   request.OutcomeRateLimited,
			check: func(t *testing.T, err error) {
				var rl *request.RateLimitedError
				require.ErrorAs(t, err, &rl)
				assert.Zero(t, rl.RetryAfter)
			},
		},
		{
			name:   "server error",
			status: http.StatusServiceUnavailable,
			want:   request.OutcomeTransient,
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			want:   request.OutcomeFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			}))

			_, err := c.GetMatch(context.Background(), "1")
			require.Error(t, err)
			assert.Equal(t, tt.want, request.Classify(err))
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewRiotClient(&config.Config{
		BaseURL:            url,
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
	}, zerolog.Nop())

	_, err := c.GetMatch(context.Background(), "1")
	assert.Equal(t, request.OutcomeTransient, request.Classify(err))
}

func TestWaitHonoursContext(t *testing.T) {
	c := NewRiotClient(&config.Config{
		BaseURL:            "http://127.0.0.1:0",
		RateLimitPerSecond: 0.001,
		RateLimitBurst:     1,
	}, zerolog.Nop())

	// drain the single burst token
	require.NoError(t, c.wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.wait(ctx), context.Canceled)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 10*time.Second, parseRetryAfter("10"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("-1"))
	assert.Zero(t, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}
