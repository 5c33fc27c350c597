package mail

import (
	"context"
	"crypto/tls"
	"io"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	from    string
	rcpts   []string
	body    strings.Builder
	quitted bool
}

func (f *fakeClient) Mail(from string) error { f.from = from; return nil }
func (f *fakeClient) Rcpt(to string) error   { f.rcpts = append(f.rcpts, to); return nil }
func (f *fakeClient) Data() (io.WriteCloser, error) {
	return nopWriteCloser{&f.body}, nil
}
func (f *fakeClient) Auth(smtp.Auth) error                 { return nil }
func (f *fakeClient) Extension(string) (bool, string)      { return false, "" }
func (f *fakeClient) StartTLS(*tls.Config) error           { return nil }
func (f *fakeClient) Quit() error                          { f.quitted = true; return nil }
func (f *fakeClient) Close() error                         { return nil }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newTestMailer(cfg SMTPSettings, client *fakeClient) Mailer {
	return &smtpMailer{cfg: cfg, dialFn: func(context.Context, SMTPSettings) (smtpClient, error) {
		return client, nil
	}}
}

func TestSendDisabled(t *testing.T) {
	m, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{To: []string{"a@example.com"}})
	require.ErrorIs(t, err, ErrDisabled)
}

func TestSendDedupesRecipients(t *testing.T) {
	client := &fakeClient{}
	m := newTestMailer(SMTPSettings{Enabled: true, Host: "mail", Port: 25, From: "noreply@agency.example"}, client)

	err := m.Send(context.Background(), Message{
		To:      []string{"lead@example.com", "lead@example.com", " "},
		Subject: "Mission rejected",
		Body:    "See review comment.",
	})
	require.NoError(t, err)
	require.Equal(t, "noreply@agency.example", client.from)
	require.Equal(t, []string{"lead@example.com"}, client.rcpts)
	require.Contains(t, client.body.String(), "Subject: Mission rejected")
	require.True(t, client.quitted)
}

func TestSendRejectsInvalidAddress(t *testing.T) {
	client := &fakeClient{}
	m := newTestMailer(SMTPSettings{Enabled: true, Host: "mail", Port: 25, From: "noreply@agency.example"}, client)

	err := m.Send(context.Background(), Message{To: []string{"not-an-address"}})
	require.Error(t, err)
	require.Empty(t, client.rcpts)
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.Error(t, err)
}

func TestHeaderEscaping(t *testing.T) {
	msg := formatMessage("a@b.c", []string{"d@e.f"}, "subject\r\nBcc: evil@x.y", "body")
	require.NotContains(t, msg, "Bcc: evil")
}
