//go:build unit

package caddy

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/caddyserver/caddy/v2/modules/caddyhttp"

	"github.com/philiph/caddy-pub-resolver/internal/adapters/driven/cache"
	"github.com/philiph/caddy-pub-resolver/internal/adapters/driven/discovery"
	"github.com/philiph/caddy-pub-resolver/internal/adapters/driven/session"
	"github.com/philiph/caddy-pub-resolver/internal/core/domain"
	"github.com/philiph/caddy-pub-resolver/internal/core/ports"
)

// testPlugin bundles a plugin instance with its fakes for assertions.
type testPlugin struct {
	plugin   *PubResolver
	provider *discovery.InMemoryDiscoveryProvider
	cache    *cache.InMemoryStubCache
}

func newTestPlugin(t *testing.T, withSession bool) *testPlugin {
	t.Helper()

	provider := discovery.NewInMemoryDiscoveryProvider()
	provider.Add("/en", 5)
	provider.Add("/fr", 7)
	stubCache := cache.NewInMemoryStubCache()
	resolver := NewResolver(provider, stubCache)

	var store *session.CookieDescriptorStore
	if withSession {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		store = session.NewCookieDescriptorStore(key, time.Hour)
	}

	var plugin *PubResolver
	if withSession {
		plugin = NewPubResolverForTest(Config{}, resolver, store)
		plugin.sessionDuration = time.Hour
	} else {
		plugin = NewPubResolverForTest(Config{}, resolver, nil)
	}

	return &testPlugin{plugin: plugin, provider: provider, cache: stubCache}
}

// nextCapture is a terminal handler that records the request it received.
type nextCapture struct {
	called  bool
	request *http.Request
}

func (n *nextCapture) handler() caddyhttp.Handler {
	return caddyhttp.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		n.called = true
		n.request = r
		return nil
	})
}

// TestServeHTTP_ResolvesAndDecoratesRequest verifies the descriptor reaches
// downstream handlers via context and headers, and a session cookie is set.
func TestServeHTTP_ResolvesAndDecoratesRequest(t *testing.T) {
	tp := newTestPlugin(t, true)
	next := &nextCapture{}

	req := httptest.NewRequest(http.MethodGet, "/en/products/123", nil)
	rec := httptest.NewRecorder()

	if err := tp.plugin.ServeHTTP(rec, req, next.handler()); err != nil {
		t.Fatalf("ServeHTTP failed: %v", err)
	}
	if !next.called {
		t.Fatal("next handler was not called")
	}

	descriptor := GetDescriptor(next.request)
	if descriptor == nil {
		t.Fatal("descriptor missing from request context")
	}
	if descriptor.ID != 5 {
		t.Errorf("descriptor ID = %d, want 5", descriptor.ID)
	}
	if descriptor.PublicationURL != "/en" {
		t.Errorf("descriptor PublicationURL = %q, want /en", descriptor.PublicationURL)
	}

	if got := next.request.Header.Get(HeaderPublicationID); got != "5" {
		t.Errorf("%s = %q, want 5", HeaderPublicationID, got)
	}
	if got := next.request.Header.Get(HeaderPublicationURL); got != "/en" {
		t.Errorf("%s = %q, want /en", HeaderPublicationURL, got)
	}
	if got := next.request.Header.Get(HeaderImagesURL); got != "/en" {
		t.Errorf("%s = %q, want /en", HeaderImagesURL, got)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != "pub_descriptor" {
		t.Errorf("cookie name = %q, want pub_descriptor", cookie.Name)
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if cookie.Value == "" {
		t.Error("session cookie value is empty")
	}
}

// TestServeHTTP_SessionReuse verifies the second request with the session
// cookie skips discovery entirely.
func TestServeHTTP_SessionReuse(t *testing.T) {
	tp := newTestPlugin(t, true)

	req := httptest.NewRequest(http.MethodGet, "/en/products", nil)
	rec := httptest.NewRecorder()
	if err := tp.plugin.ServeHTTP(rec, req, (&nextCapture{}).handler()); err != nil {
		t.Fatalf("first ServeHTTP failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}

	next := &nextCapture{}
	req = httptest.NewRequest(http.MethodGet, "/en/news", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	if err := tp.plugin.ServeHTTP(rec, req, next.handler()); err != nil {
		t.Fatalf("second ServeHTTP failed: %v", err)
	}

	if tp.provider.Calls() != 1 {
		t.Errorf("discovery calls = %d, want 1", tp.provider.Calls())
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("reused session must not set a new cookie")
	}
	if descriptor := GetDescriptor(next.request); descriptor == nil || descriptor.ID != 5 {
		t.Errorf("descriptor = %+v, want ID 5", descriptor)
	}
}

// TestServeHTTP_RootPath verifies the root path passes through with the
// empty descriptor and no session cookie.
func TestServeHTTP_RootPath(t *testing.T) {
	tp := newTestPlugin(t, true)
	next := &nextCapture{}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	if err := tp.plugin.ServeHTTP(rec, req, next.handler()); err != nil {
		t.Fatalf("ServeHTTP failed: %v", err)
	}
	if !next.called {
		t.Fatal("next handler was not called")
	}

	if got := next.request.Header.Get(HeaderPublicationID); got != strconv.Itoa(domain.UnresolvedID) {
		t.Errorf("%s = %q, want %d", HeaderPublicationID, got, domain.UnresolvedID)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("empty descriptor must not be stored in a session cookie")
	}
	if tp.provider.Calls() != 0 {
		t.Errorf("discovery calls = %d, want 0", tp.provider.Calls())
	}
}

// TestServeHTTP_RootPathClearsStaleCookie verifies a stale session cookie
// is deleted when the fresh path is unresolvable.
func TestServeHTTP_RootPathClearsStaleCookie(t *testing.T) {
	tp := newTestPlugin(t, true)

	req := httptest.NewRequest(http.MethodGet, "/en/products", nil)
	rec := httptest.NewRecorder()
	if err := tp.plugin.ServeHTTP(rec, req, (&nextCapture{}).handler()); err != nil {
		t.Fatalf("first ServeHTTP failed: %v", err)
	}
	sessionCookie := rec.Result().Cookies()[0]

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	if err := tp.plugin.ServeHTTP(rec, req, (&nextCapture{}).handler()); err != nil {
		t.Fatalf("second ServeHTTP failed: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1 deletion cookie", len(cookies))
	}
	if cookies[0].MaxAge != -1 {
		t.Errorf("cookie MaxAge = %d, want -1", cookies[0].MaxAge)
	}
	if cookies[0].Value != "" {
		t.Errorf("cookie value = %q, want empty", cookies[0].Value)
	}
}

// TestServeHTTP_StripsSpoofedHeaders verifies inbound X-Publication-*
// headers are replaced with resolved values.
func TestServeHTTP_StripsSpoofedHeaders(t *testing.T) {
	tp := newTestPlugin(t, false)
	next := &nextCapture{}

	req := httptest.NewRequest(http.MethodGet, "/en/products", nil)
	req.Header.Set(HeaderPublicationID, "999")
	req.Header.Set(HeaderPublicationURL, "/spoofed")
	rec := httptest.NewRecorder()

	if err := tp.plugin.ServeHTTP(rec, req, next.handler()); err != nil {
		t.Fatalf("ServeHTTP failed: %v", err)
	}

	if got := next.request.Header.Get(HeaderPublicationID); got != "5" {
		t.Errorf("%s = %q, want 5", HeaderPublicationID, got)
	}
	if got := next.request.Header.Get(HeaderPublicationURL); got != "/en" {
		t.Errorf("%s = %q, want /en", HeaderPublicationURL, got)
	}
}

// TestServeHTTP_DiscoveryFailure verifies a provider failure aborts the
// request with a JSON error before the next handler runs.
func TestServeHTTP_DiscoveryFailure(t *testing.T) {
	tp := newTestPlugin(t, false)
	tp.provider.FailWith(errors.New("discovery down"))
	next := &nextCapture{}

	req := httptest.NewRequest(http.MethodGet, "/en/products", nil)
	rec := httptest.NewRecorder()

	if err := tp.plugin.ServeHTTP(rec, req, next.handler()); err != nil {
		t.Fatalf("ServeHTTP failed: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var body domain.JSONErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if body.Error.Code != domain.ErrCodeDiscoveryFailed.String() {
		t.Errorf("error code = %q, want %q", body.Error.Code, domain.ErrCodeDiscoveryFailed)
	}

	if next.called {
		t.Error("next handler must not run after a resolution failure")
	}
	if tp.cache.Len() != 0 {
		t.Errorf("cache entries = %d, want 0 after failure", tp.cache.Len())
	}
}

// TestServeHTTP_APIBadMethod verifies non-GET requests to the API
// endpoints get a JSON bad request error.
func TestServeHTTP_APIBadMethod(t *testing.T) {
	tp := newTestPlugin(t, true)

	for _, path := range []string{"/publication/api/info", "/publication/api/health"} {
		next := &nextCapture{}
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()

		if err := tp.plugin.ServeHTTP(rec, req, next.handler()); err != nil {
			t.Fatalf("ServeHTTP(%s) failed: %v", path, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("POST %s status = %d, want 400", path, rec.Code)
		}

		var body domain.JSONErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode error response: %v", err)
		}
		if body.Error.Code != domain.ErrCodeBadRequest.String() {
			t.Errorf("error code = %q, want %q", body.Error.Code, domain.ErrCodeBadRequest)
		}
		if next.called {
			t.Errorf("POST %s must not fall through to the next handler", path)
		}
	}
}

// TestServeHTTP_SessionDisabled verifies the middleware works without a
// descriptor store.
func TestServeHTTP_SessionDisabled(t *testing.T) {
	tp := newTestPlugin(t, false)
	next := &nextCapture{}

	req := httptest.NewRequest(http.MethodGet, "/fr/products", nil)
	rec := httptest.NewRecorder()

	if err := tp.plugin.ServeHTTP(rec, req, next.handler()); err != nil {
		t.Fatalf("ServeHTTP failed: %v", err)
	}
	if descriptor := GetDescriptor(next.request); descriptor == nil || descriptor.ID != 7 {
		t.Errorf("descriptor = %+v, want ID 7", descriptor)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("no cookies expected without a descriptor store")
	}
}

// TestHandleInfo verifies GET /publication/api/info reports the session
// descriptor.
func TestHandleInfo(t *testing.T) {
	tp := newTestPlugin(t, true)

	// Establish a session first.
	req := httptest.NewRequest(http.MethodGet, "/en/products", nil)
	rec := httptest.NewRecorder()
	if err := tp.plugin.ServeHTTP(rec, req, (&nextCapture{}).handler()); err != nil {
		t.Fatalf("ServeHTTP failed: %v", err)
	}
	sessionCookie := rec.Result().Cookies()[0]

	req = httptest.NewRequest(http.MethodGet, "/publication/api/info", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	if err := tp.plugin.ServeHTTP(rec, req, (&nextCapture{}).handler()); err != nil {
		t.Fatalf("info request failed: %v", err)
	}

	var info struct {
		Resolved       bool   `json:"resolved"`
		PublicationID  int    `json:"publication_id"`
		PublicationURL string `json:"publication_url"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode info response: %v", err)
	}
	if !info.Resolved {
		t.Error("Resolved = false, want true")
	}
	if info.PublicationID != 5 {
		t.Errorf("PublicationID = %d, want 5", info.PublicationID)
	}
	if info.PublicationURL != "/en" {
		t.Errorf("PublicationURL = %q, want /en", info.PublicationURL)
	}
}

// TestHandleInfo_NoSession verifies the info endpoint reports unresolved
// without a session cookie.
func TestHandleInfo_NoSession(t *testing.T) {
	tp := newTestPlugin(t, true)
	next := &nextCapture{}

	req := httptest.NewRequest(http.MethodGet, "/publication/api/info", nil)
	rec := httptest.NewRecorder()
	if err := tp.plugin.ServeHTTP(rec, req, next.handler()); err != nil {
		t.Fatalf("info request failed: %v", err)
	}
	if next.called {
		t.Error("API endpoint must not fall through to the next handler")
	}

	var info struct {
		Resolved      bool `json:"resolved"`
		PublicationID int  `json:"publication_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode info response: %v", err)
	}
	if info.Resolved {
		t.Error("Resolved = true, want false")
	}
	if info.PublicationID != domain.UnresolvedID {
		t.Errorf("PublicationID = %d, want %d", info.PublicationID, domain.UnresolvedID)
	}
}

// TestHandleInfo_SessionStoreDisabled verifies the info endpoint reports a
// configuration error when no descriptor store is configured.
func TestHandleInfo_SessionStoreDisabled(t *testing.T) {
	tp := newTestPlugin(t, false)

	req := httptest.NewRequest(http.MethodGet, "/publication/api/info", nil)
	rec := httptest.NewRecorder()
	if err := tp.plugin.ServeHTTP(rec, req, (&nextCapture{}).handler()); err != nil {
		t.Fatalf("info request failed: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	var body domain.JSONErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if body.Error.Code != domain.ErrCodeConfigMissing.String() {
		t.Errorf("error code = %q, want %q", body.Error.Code, domain.ErrCodeConfigMissing)
	}
}

// recordingDescriptorStore wraps an in-memory descriptor map and records
// Delete calls.
type recordingDescriptorStore struct {
	descriptors map[string]*domain.PublicationDescriptor
	deleted     []string
}

func newRecordingDescriptorStore() *recordingDescriptorStore {
	return &recordingDescriptorStore{descriptors: make(map[string]*domain.PublicationDescriptor)}
}

func (s *recordingDescriptorStore) Create(descriptor *domain.PublicationDescriptor) (string, error) {
	token := strconv.Itoa(len(s.descriptors) + 1)
	s.descriptors[token] = descriptor
	return token, nil
}

func (s *recordingDescriptorStore) Get(token string) (*domain.PublicationDescriptor, error) {
	descriptor, ok := s.descriptors[token]
	if !ok {
		return nil, ports.ErrDescriptorNotFound
	}
	return descriptor, nil
}

func (s *recordingDescriptorStore) Delete(token string) error {
	s.deleted = append(s.deleted, token)
	delete(s.descriptors, token)
	return nil
}

// TestServeHTTP_StaleSessionDeletesDescriptor verifies the stored
// descriptor is deleted, not just the cookie, when the session goes stale.
func TestServeHTTP_StaleSessionDeletesDescriptor(t *testing.T) {
	provider := discovery.NewInMemoryDiscoveryProvider()
	provider.Add("/en", 5)
	resolver := NewResolver(provider, cache.NewInMemoryStubCache())
	store := newRecordingDescriptorStore()
	plugin := NewPubResolverForTest(Config{}, resolver, store)

	req := httptest.NewRequest(http.MethodGet, "/en/products", nil)
	rec := httptest.NewRecorder()
	if err := plugin.ServeHTTP(rec, req, (&nextCapture{}).handler()); err != nil {
		t.Fatalf("first ServeHTTP failed: %v", err)
	}
	sessionCookie := rec.Result().Cookies()[0]

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	if err := plugin.ServeHTTP(rec, req, (&nextCapture{}).handler()); err != nil {
		t.Fatalf("second ServeHTTP failed: %v", err)
	}

	if len(store.deleted) != 1 || store.deleted[0] != sessionCookie.Value {
		t.Errorf("deleted tokens = %v, want [%s]", store.deleted, sessionCookie.Value)
	}
	if len(rec.Result().Cookies()) != 1 || rec.Result().Cookies()[0].MaxAge != -1 {
		t.Error("expected a deletion cookie alongside the store delete")
	}
}

// TestHandleHealth verifies the health endpoint reports configuration.
func TestHandleHealth(t *testing.T) {
	tp := newTestPlugin(t, true)
	tp.plugin.DiscoveryURL = "http://discovery:8081/discover"

	req := httptest.NewRequest(http.MethodGet, "/publication/api/health", nil)
	rec := httptest.NewRecorder()
	if err := tp.plugin.ServeHTTP(rec, req, (&nextCapture{}).handler()); err != nil {
		t.Fatalf("health request failed: %v", err)
	}

	var health struct {
		Version        string `json:"version"`
		DiscoveryURL   string `json:"discovery_url"`
		Level          int    `json:"level"`
		SessionEnabled bool   `json:"session_enabled"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if health.Version != Version {
		t.Errorf("Version = %q, want %q", health.Version, Version)
	}
	if health.DiscoveryURL != "http://discovery:8081/discover" {
		t.Errorf("DiscoveryURL = %q", health.DiscoveryURL)
	}
	if health.Level != 1 {
		t.Errorf("Level = %d, want 1", health.Level)
	}
	if !health.SessionEnabled {
		t.Error("SessionEnabled = false, want true")
	}
}

// TestResolverQueryHelpers verifies the request-scoped query methods read
// the context descriptor and degrade safely without one.
func TestResolverQueryHelpers(t *testing.T) {
	resolver := NewResolver(discovery.NewInMemoryDiscoveryProvider(), cache.NewInMemoryStubCache())

	descriptor := &domain.PublicationDescriptor{
		ID:             42,
		PublicationURL: "/en",
		ImageURL:       "/en/media",
	}
	req := httptest.NewRequest(http.MethodGet, "/en/products", nil)
	req = req.WithContext(context.WithValue(req.Context(), descriptorContextKey{}, descriptor))

	if got := resolver.PublicationID(req); got != 42 {
		t.Errorf("PublicationID = %d, want 42", got)
	}
	if got := resolver.PublicationURL(req); got != "/en" {
		t.Errorf("PublicationURL = %q, want /en", got)
	}
	if got := resolver.ImagesURL(req); got != "/en/media" {
		t.Errorf("ImagesURL = %q, want /en/media", got)
	}
	if got := resolver.LocalPageURL(req, "news/index.html"); got != "/en/news/index.html" {
		t.Errorf("LocalPageURL = %q, want /en/news/index.html", got)
	}
	if got := resolver.LocalBinaryURL(req, "logo.png"); got != "/en/media/logo.png" {
		t.Errorf("LocalBinaryURL = %q, want /en/media/logo.png", got)
	}

	bare := httptest.NewRequest(http.MethodGet, "/en/products", nil)
	if got := resolver.PublicationID(bare); got != domain.UnresolvedID {
		t.Errorf("PublicationID without descriptor = %d, want %d", got, domain.UnresolvedID)
	}
	if got := resolver.LocalPageURL(bare, "news"); got != "" {
		t.Errorf("LocalPageURL without descriptor = %q, want empty", got)
	}
}
