package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/invoice"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/track"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/services/metrics"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/storage/sessions"
	"github.com/trezcool/academia/tests"
)

const testPassword = "Sup3r-s3cret!"

var ctxBg = context.Background()

type testApp struct {
	echoapi.Server

	conf      *core.Config
	redis     *miniredis.Miniredis
	sessions  *sessionstore.Store
	registry  *session.Registry
	usrRepo   user.Repository
	trackRepo track.Repository
	usrSvc    user.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	core.ParseEmailTemplates(conf, logger)

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	trackRepo := inmemdb.NewTrackRepository(db)

	// set up sessions
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	sessions := sessionstore.NewStore(rdb, conf.Redis.KeyPrefix)
	registry := session.NewRegistry()

	// set up services
	emailsvc.ResetSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	trackSvc := track.NewService(trackRepo)
	invoiceSvc := invoice.NewService(inmemdb.NewInvoiceRepository(db))
	enrollmentSvc := enrollment.NewService(inmemdb.NewEnrollmentRepository(db), trackSvc, invoiceSvc)
	validate, translator := testutil.NewValidator()

	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Metrics:       metricsvc.NewMetrics(),
		Validate:      validate,
		Translator:    translator,
		Sessions:      sessions,
		Registry:      registry,
		UserSvc:       usrSvc,
		TrackSvc:      trackSvc,
		EnrollmentSvc: enrollmentSvc,
		InvoiceSvc:    invoiceSvc,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testApp{
		Server:    srv,
		conf:      conf,
		redis:     mr,
		sessions:  sessions,
		registry:  registry,
		usrRepo:   usrRepo,
		trackRepo: trackRepo,
		usrSvc:    usrSvc,
	}
}

func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) createUser(t *testing.T, uname string, roles ...string) user.User {
	t.Helper()
	return testutil.CreateUser(t, app.usrRepo, "User "+uname, uname, uname+"@test.cd", testPassword, roles, true)
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateUserToken(app.conf, usr)
	require.NoError(t, err)
	return token
}

// logIn signs usr in through the auth API and returns their session cookie.
func (app *testApp) logIn(t *testing.T, usr user.User) *http.Cookie {
	t.Helper()
	rec := app.do(newRequest(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": usr.Username,
		"password": testPassword,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(rec, app.conf.Session.CookieName)
	require.NotNil(t, cookie, "session cookie")
	return cookie
}

func sessionCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// newRequest builds a JSON API request; body is marshalled when not nil.
func newRequest(method, path, token string, body interface{}, cookies ...*http.Cookie) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// newPageRequest builds a browser request; form is sent url-encoded when not nil.
func newPageRequest(method, path string, form url.Values, cookies ...*http.Cookie) *http.Request {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
