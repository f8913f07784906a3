package hometown

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/benashkar/turkish-bsl/pkg/logger"
)

// WikiAPI is the secondary lookup source queried per player.
type WikiAPI interface {
	// Ping checks whether the source is reachable at all this run.
	Ping(ctx context.Context) error

	// Search returns the best matching article title for a player name,
	// or "" when nothing matches.
	Search(ctx context.Context, name string) (string, error)

	// Wikitext returns the raw wikitext of an article.
	Wikitext(ctx context.Context, title string) (string, error)
}

// WikiClient implements WikiAPI against the MediaWiki action API.
type WikiClient struct {
	apiURL     string
	userAgent  string
	httpClient *http.Client
	logger     *logger.Logger
}

// WikiConfig holds Wikipedia client configuration
type WikiConfig struct {
	APIURL        string
	UserAgent     string
	LookupTimeout time.Duration
}

// NewWikiClient creates a new Wikipedia client
func NewWikiClient(cfg WikiConfig, l *logger.Logger) *WikiClient {
	timeout := cfg.LookupTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &WikiClient{
		apiURL:     cfg.APIURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     l,
	}
}

func (c *WikiClient) Ping(ctx context.Context) error {
	params := url.Values{
		"action": {"query"},
		"meta":   {"siteinfo"},
		"format": {"json"},
	}
	var out json.RawMessage
	return c.get(ctx, params, &out)
}

func (c *WikiClient) Search(ctx context.Context, name string) (string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {name + " basketball player"},
		"format":   {"json"},
		"srlimit":  {"5"},
	}

	var resp struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}

	// Prefer a title that actually contains the player's name; search
	// relevance alone picks wrong articles for common names.
	lower := strings.ToLower(name)
	for _, r := range resp.Query.Search {
		if strings.Contains(strings.ToLower(r.Title), lower) {
			return r.Title, nil
		}
	}
	if len(resp.Query.Search) > 0 {
		return resp.Query.Search[0].Title, nil
	}
	return "", nil
}

func (c *WikiClient) Wikitext(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":  {"query"},
		"titles":  {title},
		"prop":    {"revisions"},
		"rvprop":  {"content"},
		"rvslots": {"main"},
		"format":  {"json"},
	}

	var resp struct {
		Query struct {
			Pages map[string]struct {
				Revisions []struct {
					Slots struct {
						Main struct {
							Content string `json:"*"`
						} `json:"main"`
					} `json:"slots"`
				} `json:"revisions"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}

	for pageID, page := range resp.Query.Pages {
		if pageID == "-1" || len(page.Revisions) == 0 {
			continue
		}
		return page.Revisions[0].Slots.Main.Content, nil
	}
	return "", nil
}

func (c *WikiClient) get(ctx context.Context, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from wiki api", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode wiki response: %w", err)
	}
	return nil
}
