package mailer

import (
	"context"

	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	"taskflow/internal/models/user"

	"go.uber.org/zap"
)

// LogMailer только пишет в лог, что письмо было бы отправлено
type LogMailer struct{}

func (LogMailer) SendAssignmentEmail(ctx context.Context, recipients []*user.User, t *task.Task, assigner *user.User) error {
	logSkipped("assignment", recipients, t)
	return nil
}

func (LogMailer) SendStepAssignmentEmail(ctx context.Context, recipients []*user.User, t *task.Task, step *task.Step, assigner *user.User) error {
	logSkipped("step_assignment", recipients, t)
	return nil
}

func (LogMailer) SendHelpRequestEmail(ctx context.Context, recipients []*user.User, t *task.Task, requester *user.User, message string) error {
	logSkipped("help_request", recipients, t)
	return nil
}

func (LogMailer) SendMentionEmail(ctx context.Context, recipients []*user.User, t *task.Task, author *user.User, text string) error {
	logSkipped("mention", recipients, t)
	return nil
}

func logSkipped(kind string, recipients []*user.User, t *task.Task) {
	emails := make([]string, 0, len(recipients))
	for _, r := range recipients {
		emails = append(emails, r.Email)
	}
	logger.Info("Mailer: SMTP не настроен, письмо не отправлено",
		zap.String("kind", kind),
		zap.String("task_id", t.UUID.String()),
		zap.Strings("to", emails))
}
