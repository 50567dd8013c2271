package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is where diary feeds are served from.
const DefaultBaseURL = "https://letterboxd.com"

// maxDocumentSize caps how much of a feed response is read.
const maxDocumentSize = 10 << 20

var (
	// ErrNoUsername is returned when no feed account is configured.
	ErrNoUsername = errors.New("no username configured")
	// ErrUnreachable wraps transport-level failures.
	ErrUnreachable = errors.New("feed host unreachable")
)

// StatusError reports a non-2xx response from the feed host.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed request to %s failed with status %d", e.URL, e.StatusCode)
}

// UserMessage turns a fetch error into the message shown to the user.
func UserMessage(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoUsername):
		return "No Letterboxd username configured. Set one with `settings set --username` or pass it to `sync`."
	case errors.As(err, &statusErr):
		if statusErr.StatusCode == http.StatusNotFound {
			return "Letterboxd responded with status 404. Check that the username is correct."
		}
		return fmt.Sprintf("Letterboxd responded with status %d. Try again later.", statusErr.StatusCode)
	case errors.Is(err, ErrUnreachable):
		return "Could not reach Letterboxd. Check your connection and try again."
	default:
		return err.Error()
	}
}

// NormalizeUsername trims whitespace and a leading "@".
func NormalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}

// FeedURL builds the diary feed URL for username.
func FeedURL(baseURL, username string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + url.PathEscape(NormalizeUsername(username)) + "/rss/"
}

// Fetcher retrieves raw diary feed documents over HTTP.
type Fetcher struct {
	baseURL string
	client  *http.Client
}

// NewFetcher creates a new Fetcher. An empty baseURL means DefaultBaseURL.
func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchDocument retrieves the raw feed text for username.
func (f *Fetcher) FetchDocument(ctx context.Context, username string) (string, error) {
	if NormalizeUsername(username) == "" {
		return "", ErrNoUsername
	}

	feedURL := FeedURL(f.baseURL, username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", feedURL, err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")
	req.Header.Set("User-Agent", "alist-cli/0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, URL: feedURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrUnreachable, err)
	}
	return string(body), nil
}
