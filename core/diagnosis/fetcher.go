package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
)

// Result is a ready diagnosis payload as returned by the external service.
// Opaque blocks are kept as raw JSON; their internal shape is the upstream's
// business, not ours.
type Result struct {
	PersonalityType string          `json:"personalityType"`
	SkillMap        json.RawMessage `json:"skillMap"`
	Strengths       json.RawMessage `json:"strengths"`
	Weaknesses      json.RawMessage `json:"weaknesses"`
	Recommendations json.RawMessage `json:"recommendations"`
	PDFURL          string          `json:"pdfUrl"`
	Comment         string          `json:"comment"`
}

func rawSet(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

// empty reports whether no recognized field carries a value.
func (r *Result) empty() bool {
	return r.PersonalityType == "" && r.PDFURL == "" && r.Comment == "" &&
		!rawSet(r.SkillMap) && !rawSet(r.Strengths) && !rawSet(r.Weaknesses) && !rawSet(r.Recommendations)
}

// Fetcher asks the external service whether a diagnosis result is ready.
// A (nil, nil) return means "not ready yet"; an error is an unexpected,
// non-timeout failure only.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
}

type httpFetcher struct {
	client    *http.Client
	userAgent string
	// probe templates with {origin} and {id} placeholders, tried in order
	// before the submitted URL itself
	probes []string
	logger core.Logger
}

var _ Fetcher = (*httpFetcher)(nil)

// NewHTTPFetcher builds the production fetcher. The upstream service exposes
// no stable contract, so candidate API endpoints are guessed from the URL's
// origin and an extracted identifier, then the URL itself is fetched directly.
func NewHTTPFetcher(conf *core.Config, logger core.Logger) *httpFetcher {
	return &httpFetcher{
		client:    &http.Client{Timeout: conf.Diagnosis.FetchTimeout},
		userAgent: conf.Diagnosis.UserAgent,
		probes:    conf.Diagnosis.ProbeTemplates,
		logger:    logger,
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing submitted url")
	}

	for _, candidate := range f.candidates(u) {
		res, err := f.fetchOne(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, nil
}

// candidates expands the probe templates then appends the URL itself.
func (f *httpFetcher) candidates(u *url.URL) []string {
	var urls []string
	if id := extractID(u); id != "" {
		origin := u.Scheme + "://" + u.Host
		for _, tmpl := range f.probes {
			probe := strings.ReplaceAll(tmpl, "{origin}", origin)
			probe = strings.ReplaceAll(probe, "{id}", id)
			urls = append(urls, probe)
		}
	}
	return append(urls, u.String())
}

// extractID pulls a diagnosis/user identifier out of the URL: well-known
// query parameters first, then the last path segment.
func extractID(u *url.URL) string {
	q := u.Query()
	for _, key := range []string{"id", "uid", "resultId"} {
		if v := q.Get(key); v != "" {
			return v
		}
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if last := segments[len(segments)-1]; last != "" {
		return last
	}
	return ""
}

// fetchOne performs a single bounded GET. Timeouts and 404s mean "not ready";
// so does a body we cannot recognize. Anything else is a real failure.
func (f *httpFetcher) fetchOne(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building fetch request")
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			f.logger.Debug("diagnosis fetch timed out", "url", rawURL)
			return nil, nil
		}
		return nil, errors.Wrapf(err, "fetching %s", rawURL)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.Errorf("fetching %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if isTimeout(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %s", rawURL)
	}
	return parseResult(body), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr interface{ Timeout() bool }
	return errors.As(err, &nerr) && nerr.Timeout()
}

// parseResult recognizes either an envelope {"status": "completed",
// "result": {...}} or a flat object carrying the result fields directly.
// Unrecognized bodies mean "not ready", never an error.
func parseResult(body []byte) *Result {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil
	}

	var env struct {
		Status string  `json:"status"`
		Result *Result `json:"result"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	if env.Status != "" {
		if env.Status == "completed" && env.Result != nil && !env.Result.empty() {
			return env.Result
		}
		return nil
	}

	var flat Result
	if err := json.Unmarshal(body, &flat); err != nil || flat.empty() {
		return nil
	}
	return &flat
}
