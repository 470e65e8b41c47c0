package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"modreview/internal/dto"
	"modreview/internal/observability/metrics"
	"modreview/internal/service"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAPIURL   = "https://oauth.reddit.com"
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	recentPostLimit = 5
	maxBodyBytes    = 1 << 20
)

var (
	ErrNotConfigured = errors.New("reddit: client not configured")
	ErrMissingConfig = errors.New("reddit: client id, secret, username and password are required")
)

var _ service.IdentityProvider = (*Client)(nil)

type Config struct {
	ClientID       string
	ClientSecret   string
	Username       string
	Password       string
	UserAgent      string
	Subreddit      string
	MessageSubject string
	APIURL         string
	TokenURL       string
	Timeout        time.Duration
}

// Client talks to the Reddit API as a script application using the password
// grant. Tokens are fetched lazily and refreshed when they expire.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, ErrMissingConfig
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "modreview/1.0 (by /u/" + cfg.Username + ")"
	}
	if cfg.MessageSubject == "" {
		cfg.MessageSubject = "Your login code"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	base := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: userAgentTransport{ua: cfg.UserAgent, base: http.DefaultTransport},
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	src := oauth2.ReuseTokenSource(nil, &passwordTokenSource{
		ctx:      tokenCtx,
		conf:     oc,
		username: cfg.Username,
		password: cfg.Password,
	})

	hc := oauth2.NewClient(tokenCtx, src)
	hc.Timeout = cfg.Timeout
	return &Client{cfg: cfg, http: hc}, nil
}

type passwordTokenSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (p *passwordTokenSource) Token() (*oauth2.Token, error) {
	return p.conf.PasswordCredentialsToken(p.ctx, p.username, p.password)
}

type userAgentTransport struct {
	ua   string
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.base.RoundTrip(r)
}

// Profile fetches the account summary and its most recent submissions.
func (c *Client) Profile(ctx context.Context, username string) (_ *dto.ExternalProfile, err error) {
	defer observe("profile", &err)

	var (
		about     aboutResponse
		submitted listingResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, "/user/"+url.PathEscape(username)+"/about", nil, &about)
	})
	g.Go(func() error {
		q := url.Values{"limit": {strconv.Itoa(recentPostLimit)}}
		return c.getJSON(gctx, "/user/"+url.PathEscape(username)+"/submitted", q, &submitted)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &dto.ExternalProfile{
		Name:            about.Data.Name,
		Avatar:          about.Data.IconImg,
		CommentKarma:    about.Data.CommentKarma,
		TotalKarma:      about.Data.TotalKarma,
		Created:         int64(about.Data.CreatedUTC),
		TopFivePosts:    make([]dto.ExternalPost, 0, recentPostLimit),
		TopFiveComments: []dto.ExternalPost{},
	}
	for _, child := range submitted.Data.Children {
		if len(out.TopFivePosts) == recentPostLimit {
			break
		}
		p := child.Data
		out.TopFivePosts = append(out.TopFivePosts, dto.ExternalPost{
			Subreddit: p.Subreddit,
			URL:       postURL(p),
			ID:        p.ID,
			Title:     p.Title,
			Content:   p.Selftext,
			Score:     p.Score,
		})
	}
	return out, nil
}

// Approve adds username as an approved contributor of the configured
// subreddit.
func (c *Client) Approve(ctx context.Context, username string) (err error) {
	defer observe("approve", &err)
	if c.cfg.Subreddit == "" {
		return fmt.Errorf("reddit: approve %q: no subreddit configured", username)
	}
	form := url.Values{
		"api_type": {"json"},
		"name":     {username},
		"type":     {"contributor"},
	}
	return c.postForm(ctx, "/r/"+url.PathEscape(c.cfg.Subreddit)+"/api/friend", form)
}

// SendMessage delivers text as a private message.
func (c *Client) SendMessage(ctx context.Context, username, text string) (err error) {
	defer observe("send_message", &err)
	form := url.Values{
		"api_type": {"json"},
		"to":       {username},
		"subject":  {c.cfg.MessageSubject},
		"text":     {text},
	}
	return c.postForm(ctx, "/api/compose", form)
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("raw_json", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp apiResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if len(resp.JSON.Errors) > 0 {
		return fmt.Errorf("reddit: %s: %v", path, resp.JSON.Errors[0])
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reddit: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reddit: read %s: %w", req.URL.Path, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("reddit: %s %s: status %d", req.Method, req.URL.Path, res.StatusCode)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("reddit: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func observe(op string, err *error) {
	result := "success"
	if *err != nil {
		result = "failure"
	}
	metrics.ExternalCallsTotal.WithLabelValues(op, result).Inc()
}

func postURL(p post) string {
	if p.Permalink != "" {
		return "https://reddit.com" + p.Permalink
	}
	return "https://reddit.com/comments/" + p.ID
}
