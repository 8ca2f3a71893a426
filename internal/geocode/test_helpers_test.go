package geocode

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// newTestLimiter creates a rate limiter that effectively does not limit for tests.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newRewriteClient creates an HTTP client that redirects requests under
// targetPrefix to the test server.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if strings.HasPrefix(origURL, t.targetPrefix) {
		newReq := req.Clone(req.Context())
		parsed, err := req.URL.Parse(t.testServer + origURL[len(t.targetPrefix):])
		if err != nil {
			return nil, err
		}
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}

// fakeSearcher answers from a fixed table and counts calls.
type fakeSearcher struct {
	mu     sync.Mutex
	places map[string]Place
	errs   map[string]error
	calls  []string
	onCall func(query string)
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Search(ctx context.Context, query string) (Place, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	onCall := f.onCall
	f.mu.Unlock()

	if onCall != nil {
		onCall(query)
	}
	if err := ctx.Err(); err != nil {
		return Place{}, err
	}
	if err, ok := f.errs[query]; ok {
		return Place{}, err
	}
	if p, ok := f.places[query]; ok {
		return p, nil
	}
	return Place{}, ErrNoMatch
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
