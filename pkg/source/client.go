package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/benashkar/turkish-bsl/pkg/logger"
	"github.com/benashkar/turkish-bsl/pkg/metrics"
	"github.com/benashkar/turkish-bsl/pkg/retry"
	"github.com/benashkar/turkish-bsl/pkg/snapshot"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrSourceUnavailable is returned when the league API stays unreachable
	// after bounded retry. Fatal to the run.
	ErrSourceUnavailable = errors.New("league data source unavailable")

	// ErrSourceSchema is returned when a response cannot be mapped to player
	// records. Fatal to the run.
	ErrSourceSchema = errors.New("league data source returned unexpected schema")
)

// RawStore receives the raw snapshot before FetchPlayers returns, so the
// later stages can consume it even when run as separate processes.
type RawStore interface {
	SaveRaw(ctx context.Context, runID string, snap *snapshot.Snapshot) error
}

// Config holds league API client configuration
type Config struct {
	BaseURL        string
	League         string
	LeagueID       string
	Season         string
	RequestTimeout time.Duration
	RequestDelay   time.Duration
	MaxRetries     int
}

// Client fetches the league roster from a TheSportsDB-style API. The API has
// no cursor; pagination is team by team, and the run is complete when the
// team list is exhausted.
type Client struct {
	httpClient *http.Client
	cfg        Config
	store      RawStore
	logger     *logger.Logger
	retryOpts  retry.Options
}

// NewClient creates a new league API client
func NewClient(cfg Config, store RawStore, l *logger.Logger) *Client {
	opts := retry.DefaultOptions()
	if cfg.MaxRetries > 0 {
		opts.MaxAttempts = cfg.MaxRetries
	}
	opts.Retryable = func(err error) bool {
		return !errors.Is(err, ErrSourceSchema)
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		store:      store,
		logger:     l,
		retryOpts:  opts,
	}
}

// API payload shapes, named as TheSportsDB names them.
type apiTeam struct {
	ID      string `json:"idTeam"`
	Name    string `json:"strTeam"`
	Sport   string `json:"strSport"`
	Country string `json:"strCountry"`
}

type apiPlayer struct {
	ID          string `json:"idPlayer"`
	Name        string `json:"strPlayer"`
	Nationality string `json:"strNationality"`
	Position    string `json:"strPosition"`
	Height      string `json:"strHeight"`
	Weight      string `json:"strWeight"`
	Number      string `json:"strNumber"`
	BirthDate   string `json:"dateBorn"`
	Thumb       string `json:"strThumb"`
	Cutout      string `json:"strCutout"`
}

// FetchPlayers fetches every team of the league, then each team's players,
// keeps the American ones, dedupes by player id with last occurrence winning,
// and writes the raw snapshot before returning it.
func (c *Client) FetchPlayers(ctx context.Context) (*snapshot.Snapshot, error) {
	runID := uuid.NewString()
	now := time.Now().UTC()

	teams, err := c.fetchTeams(ctx)
	if err != nil {
		metrics.SourceFetchErrorsTotal.Inc()
		return nil, err
	}
	c.logger.Info("fetched clubs", zap.Int("count", len(teams)), zap.String("run_id", runID))

	var players []snapshot.PlayerRecord
	index := make(map[string]int)

	for i, team := range teams {
		if i > 0 && c.cfg.RequestDelay > 0 {
			select {
			case <-time.After(c.cfg.RequestDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		teamPlayers, err := c.fetchTeamPlayers(ctx, team)
		if err != nil {
			metrics.SourceFetchErrorsTotal.Inc()
			return nil, err
		}

		for _, p := range teamPlayers {
			if !IsAmerican(p.Nationality) {
				continue
			}
			record := normalizePlayer(p, team, now)
			if prev, ok := index[record.PlayerID]; ok {
				// Last occurrence wins within one fetch.
				players[prev] = record
				continue
			}
			index[record.PlayerID] = len(players)
			players = append(players, record)
		}
	}

	sort.Slice(players, func(i, j int) bool {
		if players[i].Name != players[j].Name {
			return players[i].Name < players[j].Name
		}
		return players[i].PlayerID < players[j].PlayerID
	})

	snap := &snapshot.Snapshot{
		GeneratedAt: now,
		SourceRunID: runID,
		League:      c.cfg.League,
		Season:      c.cfg.Season,
		Players:     players,
	}

	if err := c.store.SaveRaw(ctx, runID, snap); err != nil {
		return nil, fmt.Errorf("failed to save raw snapshot: %w", err)
	}

	metrics.SourceFetchedPlayersTotal.Add(float64(len(players)))
	c.logger.Info("fetched american players", zap.Int("count", len(players)), zap.String("run_id", runID))
	return snap, nil
}

func (c *Client) fetchTeams(ctx context.Context) ([]apiTeam, error) {
	var resp struct {
		Teams []apiTeam `json:"teams"`
	}
	params := url.Values{"l": {c.cfg.League}}
	if err := c.get(ctx, "/search_all_teams.php", params, &resp); err != nil {
		return nil, err
	}
	if resp.Teams == nil {
		return nil, fmt.Errorf("%w: missing teams array for league %q", ErrSourceSchema, c.cfg.League)
	}
	return resp.Teams, nil
}

func (c *Client) fetchTeamPlayers(ctx context.Context, team apiTeam) ([]apiPlayer, error) {
	var resp struct {
		Players []apiPlayer `json:"player"`
	}
	params := url.Values{"id": {team.ID}}
	if err := c.get(ctx, "/lookup_all_players.php", params, &resp); err != nil {
		return nil, err
	}

	// A roster-less team comes back as a null player array; that is valid.
	for _, p := range resp.Players {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: player without id on team %q", ErrSourceSchema, team.Name)
		}
	}

	c.logger.Debug("fetched team roster",
		zap.String("team", team.Name),
		zap.Int("players", len(resp.Players)))
	return resp.Players, nil
}

// get performs one API call with bounded retry. Transport and HTTP-status
// failures are retried and surface as ErrSourceUnavailable once the policy
// is exhausted; decode failures are schema errors and are not retried.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := c.cfg.BaseURL + endpoint + "?" + params.Encode()

	err := retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", "TurkishBSLTracker/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %v", ErrSourceSchema, err)
		}
		return nil
	}, c.retryOpts)

	if err != nil {
		if errors.Is(err, ErrSourceSchema) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return nil
}
