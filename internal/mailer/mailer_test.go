package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"taskflow/internal/models/task"
	"taskflow/internal/models/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	to   []string
	msg  string
}

type fakeSMTP struct {
	mtx  sync.Mutex
	sent []sentMail
	fail map[string]error
}

func (f *fakeSMTP) send(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	if err, ok := f.fail[to[0]]; ok {
		return err
	}
	f.sent = append(f.sent, sentMail{addr: addr, to: to, msg: string(msg)})
	return nil
}

func newTestMailer(t *testing.T, fake *fakeSMTP) *SMTPMailer {
	t.Helper()
	m, err := NewSMTP(Config{Host: "smtp.example.com", Port: 587, From: "tracker@example.com"})
	require.NoError(t, err)
	m.send = fake.send
	return m
}

func sampleTask() *task.Task {
	full := 70
	return &task.Task{
		UUID:           uuid.New(),
		Title:          "Релиз <v2>",
		StartDate:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		ManualProgress: &full,
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	ctx := context.Background()
	alice := &user.User{UUID: uuid.New(), Name: "alice", Email: "alice@example.com"}
	bob := &user.User{UUID: uuid.New(), Name: "bob", Email: "bob@example.com"}
	nobody := &user.User{UUID: uuid.New(), Name: "nobody"}

	tests := []struct {
		name     string
		send     func(*SMTPMailer) error
		fail     map[string]error
		wantSent int
		contains []string
		wantErr  bool
	}{
		{
			name: "success - assignment to every recipient",
			send: func(m *SMTPMailer) error {
				return m.SendAssignmentEmail(ctx, []*user.User{alice, bob, nobody}, sampleTask(), alice)
			},
			wantSent: 2,
			contains: []string{"Релиз &lt;v2&gt;", "01.03.2025", "11.03.2025", "Content-Type: text/html"},
		},
		{
			name: "success - help request shows progress",
			send: func(m *SMTPMailer) error {
				return m.SendHelpRequestEmail(ctx, []*user.User{bob}, sampleTask(), alice, "нужен доступ")
			},
			wantSent: 1,
			contains: []string{"70%", "нужен доступ", "alice"},
		},
		{
			name: "success - step assignment",
			send: func(m *SMTPMailer) error {
				step := &task.Step{StepNumber: 2, Title: "Тесты"}
				return m.SendStepAssignmentEmail(ctx, []*user.User{bob}, sampleTask(), step, alice)
			},
			wantSent: 1,
			contains: []string{"шаг 2", "Тесты"},
		},
		{
			name: "error - smtp failure is returned",
			send: func(m *SMTPMailer) error {
				return m.SendMentionEmail(ctx, []*user.User{alice, bob}, sampleTask(), alice, "@bob глянь")
			},
			fail:     map[string]error{"bob@example.com": errors.New("550 mailbox unavailable")},
			wantSent: 1,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSMTP{fail: tt.fail}
			m := newTestMailer(t, fake)

			err := tt.send(m)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Len(t, fake.sent, tt.wantSent)
			for _, s := range fake.sent {
				assert.Equal(t, "smtp.example.com:587", s.addr)
				for _, want := range tt.contains {
					assert.Contains(t, s.msg, want)
				}
			}
		})
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("from@example.com", "to@example.com", "Новая задача", []byte("<p>hi</p>")))

	headers, body, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, headers, "Subject: =?utf-8?q?")
	assert.Contains(t, headers, "To: to@example.com")
	assert.Equal(t, "<p>hi</p>", body)
}

func TestLogMailer(t *testing.T) {
	var m LogMailer
	assert.NoError(t, m.SendAssignmentEmail(context.Background(), []*user.User{{Email: "a@example.com"}}, sampleTask(), &user.User{}))
}
