package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func testConfig() *core.Config {
	return &core.Config{AppName: "Academia", DefaultFromEmail: "noreply@test.com", FrontendBaseURL: "http://front.test"}
}

func TestConsoleServiceMock_RendersTemplate(t *testing.T) {
	svc := NewConsoleServiceMock(testConfig(), nopLogger{})

	svc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: "Doe Jane", Address: "jane@test.com"}},
		Subject:      "approved",
		TemplateName: "account_approved",
		TemplateData: struct{ Name, Email string }{"Doe Jane", "jane@test.com"},
	})

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Hello Doe Jane")
	assert.Contains(t, sent[0].TextContent, "http://front.test/login")
	assert.Contains(t, sent[0].HTMLContent, "<p>Hello Doe Jane,</p>")
}

func TestConsoleService_Format(t *testing.T) {
	svc := NewConsoleServiceMock(testConfig(), nopLogger{})

	body, err := svc.format(core.EmailMessage{
		To:          []mail.Address{{Address: "a@test.com"}},
		Subject:     "hi",
		TextContent: "plain text",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(body, "From: \"Academia\" <noreply@test.com>\r\n"))
	assert.Contains(t, body, "Subject: [Academia] hi\r\n")
	assert.Contains(t, body, "plain text")
	assert.NotContains(t, body, "text/html")
}

func TestConsoleServiceMock_SkipsEmptyMessages(t *testing.T) {
	svc := NewConsoleServiceMock(testConfig(), nopLogger{})

	svc.SendMessages(
		&core.EmailMessage{Subject: "no recipients", BodyStr: "x"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@test.com"}}, Subject: "no content"},
	)
	assert.Empty(t, svc.SentMessages())
}
