package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"societyhub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "smtp.test", Port: 587, Username: "u", Password: "p", From: "no-reply@society.local"})

	var gotAddr string
	var gotTo []string
	var gotMsg string
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.NotNil(t, a)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), []string{"admin@example.com"}, "New payment\r\nBcc: x@evil", "line1\nline2"))
	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Equal(t, []string{"admin@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: admin@example.com\r\n")
	assert.NotContains(t, gotMsg, "\r\nBcc:")
	assert.True(t, strings.HasSuffix(gotMsg, "line1\r\nline2"))
}

func TestSMTPMailer_Errors(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "smtp.test", Port: 25})
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 busy") }

	assert.Error(t, m.Send(context.Background(), nil, "s", "b"))
	assert.ErrorContains(t, m.Send(context.Background(), []string{"a@b.c"}, "s", "b"), "421 busy")
}

func TestBuildMessage_Headers(t *testing.T) {
	msg := string(buildMessage("from@x", []string{"a@x", "b@x"}, "Hello", "body", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Contains(t, msg, "To: a@x, b@x\r\n")
	assert.Contains(t, msg, "Subject: Hello\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=utf-8\r\n")
}
