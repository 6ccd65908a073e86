// Package mailer sends task e-mails over SMTP. LogMailer is used when no SMTP host is configured.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	"taskflow/internal/models/user"
	"taskflow/internal/progress"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/*.html
var templateFS embed.FS

const dateLayout = "02.01.2006"

// одновременных SMTP-сессий на одно письмо
const sendLimit = 4

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPMailer struct {
	cfg       Config
	auth      smtp.Auth
	send      sendFunc
	templates *template.Template
}

type emailData struct {
	Recipient string
	Actor     string
	Task      *task.Task
	Step      *task.Step
	Message   string
	StartDate string
	EndDate   string
	Progress  int
}

func NewSMTP(cfg Config) (*SMTPMailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("разбор шаблонов писем: %w", err)
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPMailer{cfg: cfg, auth: auth, send: smtp.SendMail, templates: tmpl}, nil
}

func (m *SMTPMailer) SendAssignmentEmail(ctx context.Context, recipients []*user.User, t *task.Task, assigner *user.User) error {
	return m.fanOut(ctx, recipients, "assignment.html", "Новая задача: "+t.Title, emailData{
		Actor: assigner.Name,
		Task:  t,
	})
}

func (m *SMTPMailer) SendStepAssignmentEmail(ctx context.Context, recipients []*user.User, t *task.Task, step *task.Step, assigner *user.User) error {
	return m.fanOut(ctx, recipients, "step_assignment.html",
		fmt.Sprintf("Новый шаг %d: %s", step.StepNumber, t.Title), emailData{
			Actor: assigner.Name,
			Task:  t,
			Step:  step,
		})
}

func (m *SMTPMailer) SendHelpRequestEmail(ctx context.Context, recipients []*user.User, t *task.Task, requester *user.User, message string) error {
	return m.fanOut(ctx, recipients, "help_request.html", "Запрос помощи: "+t.Title, emailData{
		Actor:   requester.Name,
		Task:    t,
		Message: message,
	})
}

func (m *SMTPMailer) SendMentionEmail(ctx context.Context, recipients []*user.User, t *task.Task, author *user.User, text string) error {
	return m.fanOut(ctx, recipients, "mention.html", "Вас упомянули: "+t.Title, emailData{
		Actor:   author.Name,
		Task:    t,
		Message: text,
	})
}

// fanOut отправляет каждому получателю отдельное письмо, возвращает первую ошибку
func (m *SMTPMailer) fanOut(ctx context.Context, recipients []*user.User, name, subject string, data emailData) error {
	data.StartDate = data.Task.StartDate.Format(dateLayout)
	data.EndDate = data.Task.EndDate.Format(dateLayout)
	data.Progress = progress.DisplayProgress(data.Task.AutoProgress, data.Task.ManualProgress)

	var g errgroup.Group
	g.SetLimit(sendLimit)

	for _, rcpt := range recipients {
		if rcpt.Email == "" {
			continue
		}
		d := data
		d.Recipient = rcpt.Name

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return m.sendOne(rcpt.Email, name, subject, d)
		})
	}
	return g.Wait()
}

func (m *SMTPMailer) sendOne(to, name, subject string, data emailData) error {
	start := time.Now()

	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, name, data); err != nil {
		return fmt.Errorf("шаблон %s: %w", name, err)
	}

	msg := buildMessage(m.cfg.From, to, subject, body.Bytes())
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, m.auth, m.cfg.From, []string{to}, msg); err != nil {
		logger.Error("Mailer: Не удалось отправить письмо", err, zap.String("to", to), zap.String("template", name))
		return fmt.Errorf("отправка письма %s: %w", to, err)
	}

	logger.Info("Mailer: Письмо отправлено",
		zap.String("to", to),
		zap.String("template", name),
		zap.Duration("ms", time.Since(start)))
	return nil
}

func buildMessage(from, to, subject string, body []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.Write(body)
	return buf.Bytes()
}
