package sessions_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/hireai-gateway/internal/config"
	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
	"github.com/jrsteele09/hireai-gateway/internal/utils"
	"github.com/jrsteele09/hireai-gateway/sessions"
	"github.com/jrsteele09/hireai-gateway/tokens"
	"github.com/stretchr/testify/require"
)

const testCookieName = "hireai.session-token"

var testNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func setClock(t *testing.T, now *time.Time) {
	t.Helper()
	sessions.NowTimeFunc = func() time.Time { return *now }
	t.Cleanup(func() { sessions.NowTimeFunc = time.Now })
}

func testOptions() sessions.CookieOptions {
	return sessions.CookieOptions{
		Name:   testCookieName,
		MaxAge: time.Hour,
	}
}

func testTokenSet() tokens.TokenSet {
	return tokens.TokenSet{
		SessionID:    uuid.NewString(),
		AccessToken:  "A1",
		RefreshToken: "R1",
		IDToken:      "ID1",
		ExpiresAt:    utils.Ptr(testNow.Add(5 * time.Minute).Unix()),
		Provider:     tokens.ProviderOIDC,
		SubjectID:    "user-1",
		Email:        "john.doe@example.com",
		Name:         "John Doe",
	}
}

// nextRequest carries the cookies set on rec into a new request, the way a browser would.
func nextRequest(rec *httptest.ResponseRecorder, prev *http.Request) *http.Request {
	jar := map[string]*http.Cookie{}
	if prev != nil {
		for _, c := range prev.Cookies() {
			jar[c.Name] = c
		}
	}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(jar, c.Name)
			continue
		}
		jar[c.Name] = c
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	for _, c := range jar {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return req
}

func TestInMemoryRepo(t *testing.T) {
	now := testNow
	setClock(t, &now)
	ctx := context.Background()
	repo := sessions.NewInMemoryRepo(time.Hour)
	ts := testTokenSet()

	_, err := repo.Get(ctx, ts.SessionID)
	require.ErrorIs(t, err, gwerrors.ErrSessionNotFound)

	require.NoError(t, repo.Upsert(ctx, ts.SessionID, ts))
	got, err := repo.Get(ctx, ts.SessionID)
	require.NoError(t, err)
	require.Equal(t, ts, got)

	ts.AccessToken = "A2"
	require.NoError(t, repo.Upsert(ctx, ts.SessionID, ts))
	got, err = repo.Get(ctx, ts.SessionID)
	require.NoError(t, err)
	require.Equal(t, "A2", got.AccessToken)

	require.NoError(t, repo.Delete(ctx, ts.SessionID))
	_, err = repo.Get(ctx, ts.SessionID)
	require.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
	require.NoError(t, repo.Delete(ctx, ts.SessionID))

	require.ErrorIs(t, repo.Upsert(ctx, "", ts), gwerrors.ErrInvalidRequest)
}

func TestInMemoryRepoMaxAge(t *testing.T) {
	now := testNow
	setClock(t, &now)
	ctx := context.Background()
	repo := sessions.NewInMemoryRepo(time.Hour)

	a, b := testTokenSet(), testTokenSet()
	require.NoError(t, repo.Upsert(ctx, a.SessionID, a))
	now = now.Add(30 * time.Minute)
	require.NoError(t, repo.Upsert(ctx, b.SessionID, b))

	now = now.Add(31 * time.Minute)
	_, err := repo.Get(ctx, a.SessionID)
	require.ErrorIs(t, err, gwerrors.ErrSessionExpired)
	_, err = repo.Get(ctx, b.SessionID)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	require.Equal(t, 1, repo.Sweep())
	require.Equal(t, 0, repo.Len())
}

func TestInMemoryRepoExpiredGetKeepsConcurrentUpsert(t *testing.T) {
	ctx := context.Background()
	repo := sessions.NewInMemoryRepo(time.Hour)
	now := testNow
	var beforeEvict func()
	sessions.NowTimeFunc = func() time.Time {
		if hook := beforeEvict; hook != nil {
			beforeEvict = nil
			hook()
		}
		return now
	}
	t.Cleanup(func() { sessions.NowTimeFunc = time.Now })

	ts := testTokenSet()
	require.NoError(t, repo.Upsert(ctx, ts.SessionID, ts))

	now = now.Add(61 * time.Minute)
	renewed := ts
	renewed.AccessToken = "A2"
	// lands after Get has read the expired entry and before it evicts it
	beforeEvict = func() {
		require.NoError(t, repo.Upsert(ctx, ts.SessionID, renewed))
	}

	got, err := repo.Get(ctx, ts.SessionID)
	require.NoError(t, err)
	require.Equal(t, "A2", got.AccessToken)
	require.Equal(t, 1, repo.Len())

	got, err = repo.Get(ctx, ts.SessionID)
	require.NoError(t, err)
	require.Equal(t, renewed, got)
}

func TestRepoStore(t *testing.T) {
	now := testNow
	setClock(t, &now)
	store := sessions.NewRepoStore(sessions.NewInMemoryRepo(time.Hour), testOptions())
	ts := testTokenSet()

	t.Run("no cookie", func(t *testing.T) {
		_, err := store.Load(httptest.NewRequest(http.MethodGet, "/", nil))
		require.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, req, ts))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, testCookieName, cookies[0].Name)
	require.Equal(t, ts.SessionID, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	require.Equal(t, 3600, cookies[0].MaxAge)

	req = nextRequest(rec, req)
	got, err := store.Load(req)
	require.NoError(t, err)
	require.Equal(t, ts, got)

	t.Run("unknown session id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: testCookieName, Value: "forged"})
		_, err := store.Load(r)
		require.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
	})

	t.Run("save requires a session id", func(t *testing.T) {
		err := store.Save(httptest.NewRecorder(), req, tokens.TokenSet{AccessToken: "A1"})
		require.ErrorIs(t, err, gwerrors.ErrInvalidRequest)
	})

	rec = httptest.NewRecorder()
	require.NoError(t, store.Clear(rec, req))
	require.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
	_, err = store.Load(req)
	require.ErrorIs(t, err, gwerrors.ErrSessionNotFound)

	t.Run("clear without session", func(t *testing.T) {
		require.NoError(t, store.Clear(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))
	})
}

func TestCookieStoreRoundTrip(t *testing.T) {
	now := testNow
	setClock(t, &now)
	store, err := sessions.NewCookieStore("a-long-test-secret", testOptions())
	require.NoError(t, err)
	ts := testTokenSet()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, req, ts))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.NotContains(t, cookies[0].Value, "john.doe@example.com")

	got, err := store.Load(nextRequest(rec, req))
	require.NoError(t, err)
	require.Equal(t, ts, got)
}

func TestCookieStoreRejectsBadCookies(t *testing.T) {
	now := testNow
	setClock(t, &now)
	store, err := sessions.NewCookieStore("a-long-test-secret", testOptions())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, httptest.NewRequest(http.MethodGet, "/", nil), testTokenSet()))
	sealed := rec.Result().Cookies()[0].Value

	t.Run("tampered", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		mid := len(sealed) / 2
		flipped := byte('A')
		if sealed[mid] == 'A' {
			flipped = 'B'
		}
		r.AddCookie(&http.Cookie{Name: testCookieName, Value: sealed[:mid] + string(flipped) + sealed[mid+1:]})
		_, err := store.Load(r)
		require.ErrorIs(t, err, gwerrors.ErrSessionInvalid)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := sessions.NewCookieStore("another-secret", testOptions())
		require.NoError(t, err)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: testCookieName, Value: sealed})
		_, err = other.Load(r)
		require.ErrorIs(t, err, gwerrors.ErrSessionInvalid)
	})

	t.Run("not base64", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: testCookieName, Value: "!!!"})
		_, err := store.Load(r)
		require.ErrorIs(t, err, gwerrors.ErrSessionInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		now = now.Add(2 * time.Hour)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: testCookieName, Value: sealed})
		_, err := store.Load(r)
		require.ErrorIs(t, err, gwerrors.ErrSessionExpired)
	})

	t.Run("secret required", func(t *testing.T) {
		_, err := sessions.NewCookieStore("", testOptions())
		require.Error(t, err)
	})
}

func TestCookieStoreChunking(t *testing.T) {
	now := testNow
	setClock(t, &now)
	store, err := sessions.NewCookieStore("a-long-test-secret", testOptions())
	require.NoError(t, err)

	large := testTokenSet()
	large.AccessToken = strings.Repeat("a", 6000)
	large.IDToken = strings.Repeat("i", 3000)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, req, large))

	names := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		names[c.Name] = true
		require.LessOrEqual(t, len(c.Value), 3933)
	}
	require.True(t, names[testCookieName+".0"])
	require.True(t, names[testCookieName+".1"])
	require.True(t, names[testCookieName+".2"])
	require.False(t, names[testCookieName])

	req = nextRequest(rec, req)
	got, err := store.Load(req)
	require.NoError(t, err)
	require.Equal(t, large, got)

	// Shrinking back to one cookie expires the stale chunks
	small := large
	small.AccessToken = "A2"
	small.IDToken = "ID2"
	rec = httptest.NewRecorder()
	require.NoError(t, store.Save(rec, req, small))

	expired := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			expired[c.Name] = true
		}
	}
	require.True(t, expired[testCookieName+".0"])
	require.True(t, expired[testCookieName+".1"])
	require.True(t, expired[testCookieName+".2"])

	req = nextRequest(rec, req)
	got, err = store.Load(req)
	require.NoError(t, err)
	require.Equal(t, small, got)

	rec = httptest.NewRecorder()
	require.NoError(t, store.Clear(rec, req))
	_, err = store.Load(nextRequest(rec, req))
	require.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
}

func TestRedisRepo(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := sessions.NewRedisClient(ctx, addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := sessions.NewRedisRepo(client, time.Minute)
	ts := testTokenSet()

	_, err = repo.Get(ctx, ts.SessionID)
	require.ErrorIs(t, err, gwerrors.ErrSessionNotFound)

	require.NoError(t, repo.Upsert(ctx, ts.SessionID, ts))
	got, err := repo.Get(ctx, ts.SessionID)
	require.NoError(t, err)
	require.Equal(t, ts, got)

	ttl, err := client.TTL(ctx, "hireai:session:"+ts.SessionID).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, repo.Delete(ctx, ts.SessionID))
	_, err = repo.Get(ctx, ts.SessionID)
	require.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
}

func TestNewStore(t *testing.T) {
	t.Run("memory by default", func(t *testing.T) {
		t.Setenv("SESSION_STORE", "")
		store, closeStore, err := sessions.NewStore(context.Background(), config.New())
		require.NoError(t, err)
		require.IsType(t, &sessions.RepoStore{}, store)
		require.NoError(t, closeStore())
	})

	t.Run("cookie store needs a secret", func(t *testing.T) {
		t.Setenv("SESSION_STORE", "cookie")
		t.Setenv("SESSION_SECRET", "")
		t.Setenv("NEXTAUTH_SECRET", "")
		_, closeStore, err := sessions.NewStore(context.Background(), config.New())
		require.Error(t, err)
		require.NoError(t, closeStore())
	})

	t.Run("cookie store", func(t *testing.T) {
		t.Setenv("SESSION_STORE", "cookie")
		t.Setenv("NEXTAUTH_SECRET", "legacy-secret")
		store, _, err := sessions.NewStore(context.Background(), config.New())
		require.NoError(t, err)
		require.IsType(t, &sessions.CookieStore{}, store)
	})
}
