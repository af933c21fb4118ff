package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/session"
	"github.com/ignite/newsletter/internal/subscription"
)

type fakeSubscriptions struct {
	subscribeErr error
	confirmErr   error
	gotName      string
	gotEmail     string
	gotToken     string
}

func (f *fakeSubscriptions) Subscribe(_ context.Context, nameRaw, emailRaw string) error {
	f.gotName, f.gotEmail = nameRaw, emailRaw
	return f.subscribeErr
}

func (f *fakeSubscriptions) Confirm(_ context.Context, token string) error {
	f.gotToken = token
	return f.confirmErr
}

type fakePublisher struct {
	err      error
	gotTitle string
	gotHTML  string
	gotText  string
}

func (f *fakePublisher) Publish(_ context.Context, title, htmlContent, textContent string) error {
	f.gotTitle, f.gotHTML, f.gotText = title, htmlContent, textContent
	return f.err
}

type fakeCredentials struct {
	userID   uuid.UUID
	username string
	password string
	err      error
}

func (f *fakeCredentials) ValidateCredentials(_ context.Context, username, password string) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	if username == f.username && password == f.password {
		return f.userID, nil
	}
	return uuid.Nil, auth.ErrInvalidCredentials
}

func (f *fakeCredentials) UsernameForID(_ context.Context, userID uuid.UUID) (string, error) {
	if userID == f.userID {
		return f.username, nil
	}
	return "", errors.New("unknown user id")
}

type testApp struct {
	server *Server
	subs   *fakeSubscriptions
	pub    *fakePublisher
	creds  *fakeCredentials
	redis  *miniredis.Miniredis
}

func setupServer(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	signer := session.NewSigner([]byte("0123456789abcdef0123456789abcdef"))
	sessions := session.NewStore(client, signer, time.Hour)

	subs := &fakeSubscriptions{}
	pub := &fakePublisher{}
	creds := &fakeCredentials{
		userID:   uuid.New(),
		username: "admin",
		password: "everythinghastostartsomewhere",
	}

	srv := New(subs, pub, creds, sessions, signer, "sid", zap.NewNop())
	return &testApp{server: srv, subs: subs, pub: pub, creds: creds, redis: mr}
}

// browser returns a redirect-suppressing client with a cookie jar pointed
// at a live test server.
func browser(t *testing.T, app *testApp) (*httptest.Server, *http.Client) {
	t.Helper()
	ts := httptest.NewServer(app.server.Routes())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestHealthCheck(t *testing.T) {
	app := setupServer(t)
	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHomePage(t *testing.T) {
	app := setupServer(t)
	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/subscriptions"`)
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestSubscribe(t *testing.T) {
	app := setupServer(t)
	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, postForm("/subscriptions", url.Values{
		"name":  {"Ursula Le Guin"},
		"email": {"ursula@example.com"},
	}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ursula Le Guin", app.subs.gotName)
	assert.Equal(t, "ursula@example.com", app.subs.gotEmail)
}

func TestSubscribe_ValidationError(t *testing.T) {
	app := setupServer(t)
	app.subs.subscribeErr = &domain.ValidationError{Field: "name", Reason: "must not be empty"}

	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, postForm("/subscriptions", url.Values{
		"name":  {""},
		"email": {"ursula@example.com"},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscribe_StorageFailure(t *testing.T) {
	app := setupServer(t)
	app.subs.subscribeErr = errors.New("connection refused")

	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, postForm("/subscriptions", url.Values{
		"name":  {"Ursula"},
		"email": {"ursula@example.com"},
	}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		confirmErr error
		wantStatus int
	}{
		{"valid token", "/subscriptions/confirm?subscription_token=abc123", nil, http.StatusOK},
		{"missing token", "/subscriptions/confirm", nil, http.StatusBadRequest},
		{"unknown token", "/subscriptions/confirm?subscription_token=nope", subscription.ErrUnknownToken, http.StatusUnauthorized},
		{"storage failure", "/subscriptions/confirm?subscription_token=abc123", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupServer(t)
			app.subs.confirmErr = tt.confirmErr

			rec := httptest.NewRecorder()
			app.server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestLogin_SuccessRedirectsToDashboard(t *testing.T) {
	app := setupServer(t)
	ts, client := browser(t, app)

	resp, err := client.PostForm(ts.URL+"/login", url.Values{
		"username": {"admin"},
		"password": {"everythinghastostartsomewhere"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/dashboard", resp.Header.Get("Location"))

	// The session cookie now grants access to the dashboard.
	resp, err = client.Get(ts.URL + "/admin/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Welcome admin!")
}

func TestLogin_FailureSetsFlash(t *testing.T) {
	app := setupServer(t)
	ts, client := browser(t, app)

	resp, err := client.PostForm(ts.URL+"/login", url.Values{
		"username": {"admin"},
		"password": {"wrong"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	// First render shows the message.
	resp, err = client.Get(ts.URL + "/login")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "<p><i>Authentication failed</i></p>")

	// The flash is one-shot: a reload must not repeat it.
	resp, err = client.Get(ts.URL + "/login")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.NotContains(t, string(body), "Authentication failed")
}

func TestLogin_RotatesSessionID(t *testing.T) {
	app := setupServer(t)
	ts, client := browser(t, app)

	// Seed an anonymous session via a failed login.
	resp, err := client.PostForm(ts.URL+"/login", url.Values{
		"username": {"admin"}, "password": {"wrong"},
	})
	require.NoError(t, err)
	resp.Body.Close()

	u, _ := url.Parse(ts.URL)
	before := client.Jar.Cookies(u)[0].Value

	resp, err = client.PostForm(ts.URL+"/login", url.Values{
		"username": {"admin"}, "password": {"everythinghastostartsomewhere"},
	})
	require.NoError(t, err)
	resp.Body.Close()

	after := client.Jar.Cookies(u)[0].Value
	assert.NotEqual(t, before, after, "session id must change when privileges do")
}

func TestLoginForm_VerifiedErrorQuery(t *testing.T) {
	app := setupServer(t)
	signer := session.NewSigner([]byte("0123456789abcdef0123456789abcdef"))

	msg := "Authentication failed"
	tag := signer.SignHex([]byte("error=" + url.QueryEscape(msg)))
	target := "/login?error=" + url.QueryEscape(msg) + "&tag=" + tag

	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Contains(t, rec.Body.String(), "<p><i>Authentication failed</i></p>")
}

func TestLoginForm_DropsTamperedErrorQuery(t *testing.T) {
	app := setupServer(t)
	signer := session.NewSigner([]byte("0123456789abcdef0123456789abcdef"))

	// Tag signed for a different message must not validate this one.
	tag := signer.SignHex([]byte("error=" + url.QueryEscape("harmless")))
	target := "/login?error=" + url.QueryEscape("<script>alert(1)</script>") + "&tag=" + tag

	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	assert.NotContains(t, rec.Body.String(), "alert(1)")
	assert.NotContains(t, rec.Body.String(), "script")
}

func TestDashboard_RedirectsAnonymous(t *testing.T) {
	app := setupServer(t)
	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestDashboard_RejectsTamperedCookie(t *testing.T) {
	app := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "forged-session-id.deadbeef"})

	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	app := setupServer(t)
	ts, client := browser(t, app)

	resp, err := client.PostForm(ts.URL+"/login", url.Values{
		"username": {"admin"}, "password": {"everythinghastostartsomewhere"},
	})
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.PostForm(ts.URL+"/admin/logout", url.Values{})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	// The farewell flash renders once.
	resp, err = client.Get(ts.URL + "/login")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "You have successfully logged out.")

	// And the old session no longer opens the dashboard.
	resp, err = client.Get(ts.URL + "/admin/dashboard")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func publishRequestBody() *strings.Reader {
	return strings.NewReader(`{
		"title": "Issue #1",
		"content": {"html": "<p>hello</p>", "text": "hello"}
	}`)
}

func TestPublish(t *testing.T) {
	app := setupServer(t)
	req := httptest.NewRequest(http.MethodPost, "/newsletters", publishRequestBody())
	req.SetBasicAuth("admin", "everythinghastostartsomewhere")

	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Issue #1", app.pub.gotTitle)
	assert.Equal(t, "<p>hello</p>", app.pub.gotHTML)
	assert.Equal(t, "hello", app.pub.gotText)
}

func TestPublish_MissingAuth(t *testing.T) {
	app := setupServer(t)
	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/newsletters", publishRequestBody()))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="publish"`, rec.Header().Get("WWW-Authenticate"))
}

func TestPublish_WrongCredentials(t *testing.T) {
	app := setupServer(t)
	req := httptest.NewRequest(http.MethodPost, "/newsletters", publishRequestBody())
	req.SetBasicAuth("admin", "wrong")

	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="publish"`, rec.Header().Get("WWW-Authenticate"))
	assert.Empty(t, app.pub.gotTitle, "no fan-out on failed auth")
}

func TestPublish_InvalidBody(t *testing.T) {
	app := setupServer(t)
	req := httptest.NewRequest(http.MethodPost, "/newsletters", strings.NewReader("{not json"))
	req.SetBasicAuth("admin", "everythinghastostartsomewhere")

	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublish_DispatchFailure(t *testing.T) {
	app := setupServer(t)
	app.pub.err = errors.New("send newsletter issue to a@b.c: gateway down")

	req := httptest.NewRequest(http.MethodPost, "/newsletters", publishRequestBody())
	req.SetBasicAuth("admin", "everythinghastostartsomewhere")

	rec := httptest.NewRecorder()
	app.server.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
