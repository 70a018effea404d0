package wakatime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/HerrChaos/obsidian-waka-box/internal/model"
)

const userAgent = "wakabox/1.0"

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	// AccessToken, when set, is sent as an OAuth bearer token in addition
	// to the api_key query parameter.
	AccessToken string
	Timeout     time.Duration
	// RequestsPerMinute paces outgoing requests; zero means unlimited.
	RequestsPerMinute int
	// HTTPClient is the base client; http.DefaultClient when nil.
	HTTPClient *http.Client
}

// Client talks to the WakaTime summaries endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

// NewClient builds a client from opts.
func NewClient(ctx context.Context, opts Options) *Client {
	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}

	httpClient := &http.Client{Transport: base.Transport, Timeout: opts.Timeout}
	if opts.AccessToken != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = opts.Timeout
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		limiter:    limiter,
	}
}

// SummaryURL returns the request URL for a single day.
func (c *Client) SummaryURL(date string) string {
	return fmt.Sprintf("%s/users/current/summaries?start=%s&end=%s&api_key=%s",
		c.baseURL,
		url.QueryEscape(date),
		url.QueryEscape(date),
		url.QueryEscape(c.apiKey),
	)
}

// FetchSummary requests the summary for one day. Every failure is an
// *Error matching ErrFetchFailed.
func (c *Client) FetchSummary(ctx context.Context, date string) (*model.Summary, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindTransport, Date: date, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SummaryURL(date), nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Date: date, Err: c.redact(fmt.Errorf("creating request: %w", err))}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Date: date, Err: c.redact(err)}
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, &Error{Kind: KindTransport, Date: date, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindStatus, Date: date, Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}

	var summary *model.Summary
	if err := sonic.ConfigStd.Unmarshal(body, &summary); err != nil {
		return nil, &Error{Kind: KindParse, Date: date, Err: err}
	}
	if summary == nil {
		return nil, &Error{Kind: KindParse, Date: date, Err: errors.New("response body is null")}
	}
	return summary, nil
}

// redact strips the API key from URLs carried in transport errors.
func (c *Client) redact(err error) error {
	if c.apiKey == "" {
		return err
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = strings.ReplaceAll(ue.URL, url.QueryEscape(c.apiKey), "REDACTED")
	}
	return err
}
