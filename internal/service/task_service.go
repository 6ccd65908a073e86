package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"taskflow/internal/errs"
	"taskflow/internal/logger"
	"taskflow/internal/models/activity"
	"taskflow/internal/models/notification"
	"taskflow/internal/models/task"
	repo "taskflow/internal/repository"
	"taskflow/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

type TaskService struct {
	tasks    TaskRepository
	steps    StepRepository
	dir      *directory
	activity *ActivityService
	notifier *NotificationService
	mailer   Mailer
	clock    Clock
	locks    *taskLocks
}

// TaskView - задача с производными полями на момент чтения
type TaskView struct {
	Task       *task.Task
	Display    workflow.Display
	ActiveStep *task.Step
}

type CreateTaskInput struct {
	Title         string
	Description   string
	StartDate     time.Time
	EndDate       time.Time
	Priority      task.Priority
	AssignedUsers []uuid.UUID
}

// UpdateTaskInput - nil и пустые значения означают "не менять"
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Status        task.Status
	Priority      task.Priority
	StartDate     *time.Time
	EndDate       *time.Time
	AssignedUsers []uuid.UUID
	Version       *int
}

type ListTasksInput struct {
	Status    task.Status
	Search    string
	Assigned  *uuid.UUID
	SortBy    repo.SortField
	SortOrder repo.SortOrder
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	return s.tasks.HealthCheck(ctx)
}

func (s *TaskService) Create(ctx context.Context, actor uuid.UUID, in CreateTaskInput) (*TaskView, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errs.NewValidationError("title", "название не может быть пустым")
	}
	if in.StartDate.IsZero() {
		return nil, errs.NewValidationError("start_date", "дата начала обязательна")
	}
	if in.EndDate.IsZero() {
		return nil, errs.NewValidationError("end_date", "дата окончания обязательна")
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, errs.NewValidationError("end_date", "дата окончания раньше даты начала")
	}

	priority := in.Priority
	if priority == "" {
		priority = task.PriorityMedium
	}
	if !priority.Valid() {
		return nil, errs.NewValidationError("priority", "неизвестный приоритет")
	}

	assigned := uniqueIDs(in.AssignedUsers)
	if err := s.dir.ensureExist(ctx, "assigned_users", assigned); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	t := &task.Task{
		UUID:          uuid.New(),
		Title:         title,
		Description:   in.Description,
		CreatedBy:     actor,
		AssignedUsers: assigned,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Status:        task.StatusNotStarted,
		Priority:      priority,
		StopLogs:      []task.StopLog{},
		Comments:      []task.Comment{},
		IsActive:      true,
		CreatedAt:     now,
	}
	workflow.RefreshAutoProgress(t, now)

	if err := s.tasks.Create(ctx, t); err != nil {
		logger.Error("Service: Не удалось создать задачу", err)
		return nil, fmt.Errorf("создание задачи: %w", err)
	}
	logger.Info("Service: Задача создана", zap.String("task_id", t.UUID.String()))

	s.activity.Record(ctx, t.UUID, actor, activity.ActionCreated,
		fmt.Sprintf("Задача \"%s\" создана", t.Title), nil)
	s.notifyAssigned(ctx, t, assigned, actor)

	return s.view(ctx, t), nil
}

func (s *TaskService) Get(ctx context.Context, id uuid.UUID) (*TaskView, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, t), nil
}

func (s *TaskService) List(ctx context.Context, in ListTasksInput) ([]*TaskView, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, errs.NewValidationError("status", "неизвестный статус")
	}
	if in.SortBy != "" && !in.SortBy.Valid() {
		return nil, errs.NewValidationError("sort_by", "неизвестное поле сортировки")
	}
	if in.SortOrder != "" && !in.SortOrder.Valid() {
		return nil, errs.NewValidationError("sort_order", "ожидается asc или desc")
	}

	return s.list(ctx, repo.TaskFilter{
		Status:    in.Status,
		Search:    strings.TrimSpace(in.Search),
		Assigned:  in.Assigned,
		SortBy:    in.SortBy,
		SortOrder: in.SortOrder,
	})
}

// ListDeleted - мягко удалённые задачи для админки
func (s *TaskService) ListDeleted(ctx context.Context) ([]*TaskView, error) {
	return s.list(ctx, repo.TaskFilter{Deleted: true})
}

func (s *TaskService) list(ctx context.Context, filter repo.TaskFilter) ([]*TaskView, error) {
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	ids := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		ids[i] = t.UUID
	}

	active, err := s.steps.ListActiveByTasks(ctx, ids)
	if err != nil {
		logger.Warn("Service: Не удалось получить активные шаги", zap.Error(err))
		active = map[uuid.UUID]*task.Step{}
	}

	now := s.clock.Now()
	views := make([]*TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = &TaskView{Task: t, Display: workflow.ComputeDisplay(t, now), ActiveStep: active[t.UUID]}
	}
	return views, nil
}

func (s *TaskService) Update(ctx context.Context, actor, id uuid.UUID, in UpdateTaskInput) (*TaskView, error) {
	var title string
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, errs.NewValidationError("title", "название не может быть пустым")
		}
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, errs.NewValidationError("status", "неизвестный статус")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return nil, errs.NewValidationError("priority", "неизвестный приоритет")
	}

	unlock := s.locks.lock(id)
	defer unlock()

	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Version != nil && *in.Version != t.Version {
		return nil, errs.NewVersionConflict(errs.ResourceTask, id.String(), repo.ErrVersionConflict)
	}

	before := *t
	before.AssignedUsers = slices.Clone(t.AssignedUsers)

	var assigned []uuid.UUID
	if in.AssignedUsers != nil {
		assigned = uniqueIDs(in.AssignedUsers)
	}
	var start, end time.Time
	if in.StartDate != nil {
		start = *in.StartDate
	}
	if in.EndDate != nil {
		end = *in.EndDate
	}

	options := []task.TaskOption{
		task.WithTitle(title),
		task.WithDescription(in.Description),
		task.WithStatus(in.Status),
		task.WithPriority(in.Priority),
		task.WithStartDate(start),
		task.WithEndDate(end),
		task.WithAssignedUsers(assigned),
	}
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}

	if t.EndDate.Before(t.StartDate) {
		return nil, errs.NewValidationError("end_date", "дата окончания раньше даты начала")
	}

	added, removed := diffIDs(before.AssignedUsers, t.AssignedUsers)
	if err := s.dir.ensureExist(ctx, "assigned_users", added); err != nil {
		return nil, err
	}

	workflow.RefreshAutoProgress(t, s.clock.Now())

	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, storageError(err, errs.ResourceTask, id, "обновление задачи")
	}
	logger.Info("Service: Задача обновлена", zap.String("task_id", id.String()))

	if before.Status != t.Status {
		s.activity.Record(ctx, id, actor, activity.ActionStatusChanged,
			fmt.Sprintf("Статус изменён: %s -> %s", before.Status, t.Status),
			map[string]any{"old": before.Status, "new": t.Status})
		s.notifyStatus(ctx, t, actor)
	}
	if len(added) > 0 {
		s.activity.Record(ctx, id, actor, activity.ActionAssigned, "Назначены исполнители",
			map[string]any{"users": added})
		s.notifyAssigned(ctx, t, added, actor)
	}
	if len(removed) > 0 {
		s.activity.Record(ctx, id, actor, activity.ActionUnassigned, "Сняты исполнители",
			map[string]any{"users": removed})
	}
	if fields := changedFields(&before, t); len(fields) > 0 {
		s.activity.Record(ctx, id, actor, activity.ActionUpdated, "Задача изменена",
			map[string]any{"fields": fields})
	}

	return s.view(ctx, t), nil
}

// Delete - только мягкое удаление
func (s *TaskService) Delete(ctx context.Context, actor, id uuid.UUID) error {
	unlock := s.locks.lock(id)
	defer unlock()

	t, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	t.IsActive = false
	if err := s.tasks.Update(ctx, t); err != nil {
		return storageError(err, errs.ResourceTask, id, "удаление задачи")
	}
	logger.Info("Service: Задача удалена", zap.String("task_id", id.String()))

	s.activity.Record(ctx, id, actor, activity.ActionDeleted, fmt.Sprintf("Задача \"%s\" удалена", t.Title), nil)
	return nil
}

func (s *TaskService) Restore(ctx context.Context, actor, id uuid.UUID) (*TaskView, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, errs.ResourceTask, id, "получение задачи")
	}
	if t.IsActive {
		return nil, errs.NewBusinessError(errs.CodeNotDeleted, "задача не удалена", errs.ToDetail("id", id.String()))
	}

	t.IsActive = true
	workflow.RefreshAutoProgress(t, s.clock.Now())
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, storageError(err, errs.ResourceTask, id, "восстановление задачи")
	}
	logger.Info("Service: Задача восстановлена", zap.String("task_id", id.String()))

	s.activity.Record(ctx, id, actor, activity.ActionRestored, fmt.Sprintf("Задача \"%s\" восстановлена", t.Title), nil)
	return s.view(ctx, t), nil
}

func (s *TaskService) StopWork(ctx context.Context, actor, id uuid.UUID, reason string) (*TaskView, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entry, err := workflow.StopWork(t, reason, actor, now)
	if err != nil {
		return nil, err
	}
	workflow.RefreshAutoProgress(t, now)

	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, storageError(err, errs.ResourceTask, id, "остановка работы")
	}

	s.activity.Record(ctx, id, actor, activity.ActionPaused, "Работа приостановлена",
		map[string]any{"reason": entry.Reason})
	s.notifier.NotifyUsers(ctx, t.Participants(), actor, notification.TypeTaskUpdated,
		"Работа приостановлена",
		fmt.Sprintf("Задача \"%s\" приостановлена: %s", t.Title, entry.Reason),
		notification.Context{TaskID: &t.UUID, RelatedUserID: &actor})

	return s.view(ctx, t), nil
}

func (s *TaskService) ResumeWork(ctx context.Context, actor, id uuid.UUID) (*TaskView, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.ResumeWork(t)
	workflow.RefreshAutoProgress(t, s.clock.Now())

	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, storageError(err, errs.ResourceTask, id, "возобновление работы")
	}

	s.activity.Record(ctx, id, actor, activity.ActionResumed, "Работа возобновлена", nil)
	s.notifier.NotifyUsers(ctx, t.Participants(), actor, notification.TypeTaskUpdated,
		"Работа возобновлена",
		fmt.Sprintf("Работа над задачей \"%s\" возобновлена", t.Title),
		notification.Context{TaskID: &t.UUID, RelatedUserID: &actor})

	return s.view(ctx, t), nil
}

// SetProgress задаёт ручной прогресс, 100 завершает задачу
func (s *TaskService) SetProgress(ctx context.Context, actor, id uuid.UUID, value int, comment string) (*TaskView, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	statusBefore := t.Status
	old, err := workflow.SetManualProgress(t, value, comment, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, storageError(err, errs.ResourceTask, id, "обновление прогресса")
	}

	metadata := map[string]any{"new": value, "comment": strings.TrimSpace(comment)}
	if old != nil {
		metadata["old"] = *old
	}
	s.activity.Record(ctx, id, actor, activity.ActionProgressUpdated,
		fmt.Sprintf("Прогресс установлен: %d%%", value), metadata)

	if statusBefore != t.Status {
		s.activity.Record(ctx, id, actor, activity.ActionStatusChanged,
			fmt.Sprintf("Статус изменён: %s -> %s", statusBefore, t.Status),
			map[string]any{"old": statusBefore, "new": t.Status})
		s.notifyStatus(ctx, t, actor)
	}

	return s.view(ctx, t), nil
}

// RequestHelp пишет создателю и остальным исполнителям
func (s *TaskService) RequestHelp(ctx context.Context, actor, id uuid.UUID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return errs.NewValidationError("message", "опишите, какая нужна помощь")
	}

	t, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	requester := s.dir.actor(ctx, actor)
	recipients := s.dir.recipients(ctx, t.Participants(), actor)
	if len(recipients) > 0 {
		if err := s.mailer.SendHelpRequestEmail(ctx, recipients, t, requester, message); err != nil {
			logger.Error("Service: Не удалось отправить запрос помощи", err, zap.String("task_id", id.String()))
		}
	}

	s.notifier.NotifyUsers(ctx, t.Participants(), actor, notification.TypeHelpRequest,
		"Запрос помощи",
		fmt.Sprintf("%s просит помощи по задаче \"%s\": %s", requester.Name, t.Title, message),
		notification.Context{TaskID: &t.UUID, RelatedUserID: &actor})
	s.activity.Record(ctx, id, actor, activity.ActionHelpRequested, "Запрошена помощь",
		map[string]any{"message": message})

	return nil
}

func (s *TaskService) AddComment(ctx context.Context, actor, id uuid.UUID, text string) (*task.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.NewValidationError("text", "комментарий не может быть пустым")
	}

	unlock := s.locks.lock(id)
	defer unlock()

	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	mentions := s.resolveMentions(ctx, text)

	comment := task.Comment{
		ID:        uuid.New(),
		UserID:    actor,
		Text:      text,
		Mentions:  mentions,
		Timestamp: s.clock.Now(),
	}
	t.Comments = append(t.Comments, comment)

	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, storageError(err, errs.ResourceTask, id, "добавление комментария")
	}

	s.activity.Record(ctx, id, actor, activity.ActionCommented, "Добавлен комментарий",
		map[string]any{"comment_id": comment.ID, "mentions": mentions})

	author := s.dir.actor(ctx, actor)
	nctx := notification.Context{TaskID: &t.UUID, RelatedUserID: &actor}
	if len(mentions) > 0 {
		s.notifier.NotifyUsers(ctx, mentions, actor, notification.TypeTaskMentioned,
			"Вас упомянули",
			fmt.Sprintf("%s упомянул(а) вас в задаче \"%s\"", author.Name, t.Title), nctx)

		if recipients := s.dir.recipients(ctx, mentions, actor); len(recipients) > 0 {
			if err := s.mailer.SendMentionEmail(ctx, recipients, t, author, text); err != nil {
				logger.Error("Service: Не удалось отправить письмо об упоминании", err, zap.String("task_id", id.String()))
			}
		}
	}

	others := slices.DeleteFunc(t.Participants(), func(u uuid.UUID) bool { return slices.Contains(mentions, u) })
	s.notifier.NotifyUsers(ctx, others, actor, notification.TypeTaskComment,
		"Новый комментарий",
		fmt.Sprintf("%s прокомментировал(а) задачу \"%s\"", author.Name, t.Title), nctx)

	return &comment, nil
}

// UpdateComment меняет текст своего комментария, упоминания пересчитываются
func (s *TaskService) UpdateComment(ctx context.Context, actor, id, commentID uuid.UUID, text string) (*task.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.NewValidationError("text", "комментарий не может быть пустым")
	}

	unlock := s.locks.lock(id)
	defer unlock()

	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	i := slices.IndexFunc(t.Comments, func(c task.Comment) bool { return c.ID == commentID })
	if i < 0 {
		return nil, errs.NewNotFound(errs.ResourceComment, commentID.String())
	}
	if t.Comments[i].UserID != actor {
		return nil, errs.NewForbidden("редактировать комментарий может только автор")
	}

	now := s.clock.Now()
	t.Comments[i].Text = text
	t.Comments[i].Mentions = s.resolveMentions(ctx, text)
	t.Comments[i].EditedAt = &now

	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, storageError(err, errs.ResourceTask, id, "изменение комментария")
	}

	comment := t.Comments[i]
	s.activity.Record(ctx, id, actor, activity.ActionCommented, "Комментарий изменён",
		map[string]any{"comment_id": commentID, "edited": true})
	return &comment, nil
}

// DeleteComment разрешён автору и администратору
func (s *TaskService) DeleteComment(ctx context.Context, actor, id, commentID uuid.UUID) error {
	unlock := s.locks.lock(id)
	defer unlock()

	t, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	i := slices.IndexFunc(t.Comments, func(c task.Comment) bool { return c.ID == commentID })
	if i < 0 {
		return errs.NewNotFound(errs.ResourceComment, commentID.String())
	}
	if t.Comments[i].UserID != actor && !s.dir.isAdmin(ctx, actor) {
		return errs.NewForbidden("удалить комментарий может только автор или администратор")
	}

	t.Comments = slices.Delete(t.Comments, i, i+1)
	if err := s.tasks.Update(ctx, t); err != nil {
		return storageError(err, errs.ResourceTask, id, "удаление комментария")
	}

	logger.Info("Service: Комментарий удалён",
		zap.String("task_id", id.String()), zap.String("comment_id", commentID.String()))
	return nil
}

// resolveMentions - id упомянутых пользователей, неизвестные имена пропускаются
func (s *TaskService) resolveMentions(ctx context.Context, text string) []uuid.UUID {
	mentions := []uuid.UUID{}
	names := parseMentions(text)
	if len(names) == 0 {
		return mentions
	}

	found, err := s.dir.users.GetByNames(ctx, names)
	if err != nil {
		logger.Warn("Service: Не удалось разобрать упоминания", zap.Error(err))
	}
	for _, u := range found {
		mentions = append(mentions, u.UUID)
	}
	return mentions
}

func (s *TaskService) Comments(ctx context.Context, id uuid.UUID) ([]task.Comment, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Comments == nil {
		return []task.Comment{}, nil
	}
	return t.Comments, nil
}

func (s *TaskService) Activities(ctx context.Context, id uuid.UUID, limit int) ([]*activity.Activity, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	return s.activity.ListByTask(ctx, id, limit)
}

// load отдаёт только не удалённые задачи
func (s *TaskService) load(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return loadActiveTask(ctx, s.tasks, id)
}

func loadActiveTask(ctx context.Context, tasks TaskRepository, id uuid.UUID) (*task.Task, error) {
	t, err := tasks.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, errs.ResourceTask, id, "получение задачи")
	}
	if !t.IsActive {
		return nil, taskDeleted(id)
	}
	return t, nil
}

func (s *TaskService) view(ctx context.Context, t *task.Task) *TaskView {
	active, err := s.steps.ListActiveByTasks(ctx, []uuid.UUID{t.UUID})
	if err != nil {
		logger.Warn("Service: Не удалось получить активный шаг", zap.Error(err), zap.String("task_id", t.UUID.String()))
	}
	return &TaskView{Task: t, Display: workflow.ComputeDisplay(t, s.clock.Now()), ActiveStep: active[t.UUID]}
}

func (s *TaskService) notifyAssigned(ctx context.Context, t *task.Task, ids []uuid.UUID, actor uuid.UUID) {
	if len(ids) == 0 {
		return
	}

	s.notifier.NotifyUsers(ctx, ids, actor, notification.TypeTaskAssigned,
		"Новая задача",
		fmt.Sprintf("Вам назначена задача \"%s\"", t.Title),
		notification.Context{TaskID: &t.UUID, RelatedUserID: &actor})

	recipients := s.dir.recipients(ctx, ids, actor)
	if len(recipients) == 0 {
		return
	}
	if err := s.mailer.SendAssignmentEmail(ctx, recipients, t, s.dir.actor(ctx, actor)); err != nil {
		logger.Error("Service: Не удалось отправить письмо о назначении", err, zap.String("task_id", t.UUID.String()))
	}
}

func (s *TaskService) notifyStatus(ctx context.Context, t *task.Task, actor uuid.UUID) {
	typ, title := notification.TypeTaskUpdated, "Статус задачи изменён"
	if t.Status == task.StatusCompleted {
		typ, title = notification.TypeTaskCompleted, "Задача завершена"
	}
	s.notifier.NotifyUsers(ctx, t.Participants(), actor, typ, title,
		fmt.Sprintf("Задача \"%s\": %s", t.Title, t.Status),
		notification.Context{TaskID: &t.UUID, RelatedUserID: &actor})
}

// changedFields - поля, кроме статуса и исполнителей, у которых есть свои события
func changedFields(before, after *task.Task) []string {
	var fields []string
	if before.Title != after.Title {
		fields = append(fields, "title")
	}
	if before.Description != after.Description {
		fields = append(fields, "description")
	}
	if before.Priority != after.Priority {
		fields = append(fields, "priority")
	}
	if !before.StartDate.Equal(after.StartDate) {
		fields = append(fields, "start_date")
	}
	if !before.EndDate.Equal(after.EndDate) {
		fields = append(fields, "end_date")
	}
	return fields
}
