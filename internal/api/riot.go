package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"match-collector/internal/config"
	"match-collector/internal/constants"
	"match-collector/internal/domain"
	"match-collector/internal/request"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

type RiotClient struct {
	apiKey      string
	baseURL     string
	client      *fasthttp.Client
	limiter     *rate.Limiter
	logger      zerolog.Logger
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo

	// player ids are summoner ids; match lists are keyed by account id
	accountsMu sync.RWMutex
	accounts   map[domain.PlayerID]string
}

// RateLimitInfo mirrors the rate limit headers of the latest response.
type RateLimitInfo struct {
	// e.g. "20:1,100:120"
	AppLimit    string `json:"app_limit"`
	AppCount    string `json:"app_count"`
	MethodLimit string `json:"method_limit"`
	MethodCount string `json:"method_count"`

	// set on 429 responses: application, method or service
	LimitType string `json:"limit_type"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewRiotClient(cfg *config.Config, logger zerolog.Logger) *RiotClient {
	return &RiotClient{
		apiKey:  cfg.RiotAPIKey,
		baseURL: cfg.BaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst),
		logger:   logger.With().Str("component", "riot_client").Logger(),
		accounts: make(map[domain.PlayerID]string),
	}
}

func (c *RiotClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *RiotClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if v := string(resp.Header.Peek("X-App-Rate-Limit")); v != "" {
		c.rateLimit.AppLimit = v
	}
	if v := string(resp.Header.Peek("X-App-Rate-Limit-Count")); v != "" {
		c.rateLimit.AppCount = v
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit")); v != "" {
		c.rateLimit.MethodLimit = v
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit-Count")); v != "" {
		c.rateLimit.MethodCount = v
	}
	c.rateLimit.LimitType = string(resp.Header.Peek("X-Rate-Limit-Type"))
	c.rateLimit.UpdatedAt = time.Now()
}

func (c *RiotClient) GetMatch(ctx context.Context, id domain.MatchID) (*domain.MatchDocument, error) {
	u := fmt.Sprintf("%s/lol/match/v4/matches/%s", c.baseURL, url.PathEscape(string(id)))
	body, err := c.do(ctx, u)
	if err != nil {
		return nil, err
	}

	var match matchResponse
	if err := json.Unmarshal(body, &match); err != nil {
		return nil, fmt.Errorf("failed to decode match %s: %w", id, err)
	}

	doc := &domain.MatchDocument{MatchID: id, Raw: body}
	for _, p := range match.ParticipantIdentities {
		if p.Player.SummonerID == "" {
			continue
		}
		player := domain.PlayerID(p.Player.SummonerID)
		doc.Participants = append(doc.Participants, player)
		if p.Player.AccountID != "" {
			c.rememberAccount(player, string(p.Player.AccountID))
		}
	}
	return doc, nil
}

func (c *RiotClient) rememberAccount(player domain.PlayerID, accountID string) {
	c.accountsMu.Lock()
	defer c.accountsMu.Unlock()
	c.accounts[player] = accountID
}

// accountID resolves a summoner id to the account id match lists are keyed
// by. Participants of fetched matches are already known; anyone else costs one
// summoner lookup.
func (c *RiotClient) accountID(ctx context.Context, player domain.PlayerID) (string, error) {
	c.accountsMu.RLock()
	id, ok := c.accounts[player]
	c.accountsMu.RUnlock()
	if ok {
		return id, nil
	}

	u := fmt.Sprintf("%s/lol/summoner/v4/summoners/%s", c.baseURL, url.PathEscape(string(player)))
	body, err := c.do(ctx, u)
	if err != nil {
		return "", err
	}

	var summoner summonerResponse
	if err := json.Unmarshal(body, &summoner); err != nil {
		return "", fmt.Errorf("failed to decode summoner %s: %w", player, err)
	}
	if summoner.AccountID == "" {
		return "", fmt.Errorf("summoner %s has no account id", player)
	}

	c.rememberAccount(player, string(summoner.AccountID))
	return string(summoner.AccountID), nil
}

func (c *RiotClient) GetMatchHistory(ctx context.Context, player domain.PlayerID, filter request.QueueFilter) ([]domain.MatchRef, error) {
	q := url.Values{}
	for _, queue := range filter.Queues {
		q.Add("queue", strconv.Itoa(queue))
	}
	account, err := c.accountID(ctx, player)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/lol/match/v4/matchlists/by-account/%s", c.baseURL, url.PathEscape(account))
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	body, err := c.do(ctx, u)
	if err != nil {
		return nil, err
	}

	var list matchListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode match history of %s: %w", player, err)
	}

	refs := make([]domain.MatchRef, 0, len(list.Matches))
	for _, m := range list.Matches {
		refs = append(refs, domain.MatchRef{
			MatchID:   domain.MatchID(m.GameID),
			Queue:     m.Queue,
			Mode:      queueModes[m.Queue],
			Timestamp: time.UnixMilli(m.Timestamp).UTC(),
		})
	}
	return refs, nil
}

// GetPlayerTiers looks players up one at a time. A player the remote does not
// know is reported with no entries rather than failing the whole batch.
func (c *RiotClient) GetPlayerTiers(ctx context.Context, players []domain.PlayerID) (map[domain.PlayerID][]domain.TierEntry, error) {
	out := make(map[domain.PlayerID][]domain.TierEntry, len(players))
	for _, id := range players {
		u := fmt.Sprintf("%s/lol/league/v4/entries/by-summoner/%s", c.baseURL, url.PathEscape(string(id)))
		body, err := c.do(ctx, u)
		if errors.Is(err, request.ErrNotFound) {
			out[id] = nil
			continue
		}
		if err != nil {
			return nil, err
		}

		var entries []domain.TierEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode tiers of %s: %w", id, err)
		}
		out[id] = entries
	}
	return out, nil
}

// do waits for the client-side limiter, performs a GET and maps the response
// status onto the request error taxonomy.
func (c *RiotClient) do(ctx context.Context, u string) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(u)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("X-Riot-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	deadline := time.Now().Add(constants.ExternalAPITimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		c.logger.Warn().Err(err).Str("url", u).Msg("request failed")
		return nil, &request.TransientError{Err: err}
	}
	c.updateRateLimit(resp)

	status := resp.StatusCode()
	c.logger.Debug().
		Str("url", u).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("api call")

	switch {
	case status == fasthttp.StatusOK:
		return bytes.Clone(resp.Body()), nil
	case status == fasthttp.StatusNotFound:
		return nil, request.ErrNotFound
	case status == fasthttp.StatusTooManyRequests:
		return nil, &request.RateLimitedError{
			RetryAfter: parseRetryAfter(string(resp.Header.Peek("Retry-After"))),
			Scope:      string(resp.Header.Peek("X-Rate-Limit-Type")),
		}
	case status >= fasthttp.StatusInternalServerError:
		return nil, &request.TransientError{Err: fmt.Errorf("API error: %d", status)}
	default:
		return nil, fmt.Errorf("API error: %d", status)
	}
}

func (c *RiotClient) wait(ctx context.Context) error {
	r := c.limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	if delay > constants.RateLimitWarnWait {
		c.logger.Info().Dur("wait", delay).Msg("client-side rate limit, waiting for capacity")
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return fmt.Errorf("rate limiter cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter reads a Retry-After header in seconds. Zero means absent or
// unparseable and lets the caller pick its default.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// queueModes maps queue ids to their game mode; match lists only report the queue.
var queueModes = map[int]string{
	400:  "CLASSIC",
	420:  "CLASSIC",
	430:  "CLASSIC",
	440:  "CLASSIC",
	450:  "ARAM",
	700:  "CLASSIC",
	900:  "URF",
	1020: "ONEFORALL",
}

// remoteID accepts ids the remote encodes either as JSON numbers or strings.
type remoteID string

func (id *remoteID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = remoteID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = remoteID(n.String())
	return nil
}

type matchResponse struct {
	GameID                remoteID              `json:"gameId"`
	ParticipantIdentities []participantIdentity `json:"participantIdentities"`
}

type participantIdentity struct {
	ParticipantID int `json:"participantId"`
	Player        struct {
		SummonerID remoteID `json:"summonerId"`
		AccountID  remoteID `json:"accountId"`
	} `json:"player"`
}

type summonerResponse struct {
	ID        remoteID `json:"id"`
	AccountID remoteID `json:"accountId"`
}

type matchListResponse struct {
	Matches    []matchListEntry `json:"matches"`
	TotalGames int              `json:"totalGames"`
}

type matchListEntry struct {
	GameID    remoteID `json:"gameId"`
	Queue     int      `json:"queue"`
	Timestamp int64    `json:"timestamp"`
}
