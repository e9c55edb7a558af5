package emailsvc

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

type testLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *testLogger) Debug(string, ...interface{}) {}
func (l *testLogger) Info(string, ...interface{})  {}
func (l *testLogger) Warn(string, ...interface{})  {}
func (l *testLogger) Fatal(string, ...interface{}) {}
func (l *testLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

type tokenData struct {
	Name  string
	UID   string
	Token string
}

func TestConsoleServiceMock(t *testing.T) {
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(conf, new(testLogger))
	ResetSentMessages()

	svc := NewConsoleServiceMock(conf)
	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "T", Address: "t@test.test"}},
			Subject:      "Password Reset",
			TemplateName: "password_reset",
			TemplateData: tokenData{Name: "T", UID: "dWlk", Token: "tok-en"},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "hello"},
		&core.EmailMessage{To: []mail.Address{{Address: "t@test.test"}}, Subject: "plain", BodyStr: "hello"},
	)

	sent := SentMessages()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].TextContent, "/auth/password-reset?uid=dWlk&token=tok-en")
	assert.Contains(t, sent[0].HTMLContent, "tok-en")
	assert.Equal(t, "hello", sent[1].TextContent)
}

func TestSendgridService_send(t *testing.T) {
	conf := core.NewTestConfig()

	tests := []struct {
		name      string
		res       *rest.Response
		err       error
		wantErr   bool
		wantHTML  bool
		htmlInMsg string
	}{
		{name: "accepted", res: &rest.Response{StatusCode: http.StatusAccepted}},
		{name: "accepted with html", res: &rest.Response{StatusCode: http.StatusAccepted}, htmlInMsg: "<p>hi</p>", wantHTML: true},
		{name: "rejected", res: &rest.Response{StatusCode: http.StatusBadRequest, Body: "bad"}, wantErr: true},
		{name: "transport error", err: errors.New("conn refused"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := new(testLogger)
			svc := NewSendgridService(conf, logger).(*sendgridService)

			var body string
			svc.api = func(req rest.Request) (*rest.Response, error) {
				assert.Equal(t, http.MethodPost, string(req.Method))
				assert.True(t, strings.HasSuffix(req.BaseURL, endpoint))
				body = string(req.Body)
				return tt.res, tt.err
			}

			err := svc.send(core.EmailMessage{
				To:          []mail.Address{{Name: "T", Address: "t@test.test"}},
				Subject:     "Hi",
				TextContent: "hi",
				HTMLContent: tt.htmlInMsg,
			})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Len(t, logger.errors, 1)
			} else {
				assert.NoError(t, err)
				assert.Empty(t, logger.errors)
			}
			assert.Contains(t, body, `"subject":"[Academia] Hi"`)
			assert.Contains(t, body, "t@test.test")
			assert.Equal(t, tt.wantHTML, strings.Contains(body, "text/html"))
		})
	}
}
