package handlers

import (
	"net/http"

	"taskflow/internal/middleware"

	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	Tasks         TaskHandler
	Steps         StepHandler
	Notifications NotificationHandler
	Users         UserHandler
	Updates       UpdateHandler
}

func New(tasks TaskService, steps StepService, notifications NotificationService, users UserService, updates UpdateService) *Handlers {
	return &Handlers{
		Tasks:         NewTaskHandler(tasks),
		Steps:         NewStepHandler(steps),
		Notifications: NewNotificationHandler(notifications),
		Users:         NewUserHandler(users),
		Updates:       NewUpdateHandler(updates),
	}
}

// Routes вешает обработчики на r. /health открыт, /api и /admin требуют X-User-ID.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/health", h.Tasks.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(middleware.UserID)

		r.Route("/api", func(r chi.Router) {
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", h.Tasks.GetTasks)  // GET /api/tasks
				r.Post("/", h.Tasks.PostTask) // POST /api/tasks

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Tasks.GetTaskByID)
					r.Put("/", h.Tasks.UpdateTaskByID)
					r.Delete("/", h.Tasks.DeleteTaskByID)

					r.Post("/stop", h.Tasks.StopWork)
					r.Post("/resume", h.Tasks.ResumeWork)
					r.Put("/progress", h.Tasks.SetProgress)
					r.Post("/help", h.Tasks.RequestHelp)

					r.Get("/comments", h.Tasks.GetComments)
					r.Post("/comments", h.Tasks.PostComment)
					r.Put("/comments/{commentID}", h.Tasks.UpdateComment)
					r.Delete("/comments/{commentID}", h.Tasks.DeleteComment)
					r.Get("/activities", h.Tasks.GetActivities)

					r.Get("/steps", h.Steps.GetSteps)
					r.Post("/steps", h.Steps.PostStep)
				})
			})

			r.Route("/steps/{id}", func(r chi.Router) {
				r.Put("/", h.Steps.UpdateStep)
				r.Delete("/", h.Steps.DeleteStep)
				r.Post("/activate", h.Steps.ActivateStep)
				r.Post("/complete", h.Steps.CompleteStep)
			})

			r.Route("/updates", func(r chi.Router) {
				r.Get("/tasks/{taskID}", h.Updates.GetUpdates)
				r.Post("/tasks/{taskID}", h.Updates.PostUpdate)
				r.Delete("/{id}", h.Updates.DeleteUpdate)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notifications.GetNotifications)
				r.Get("/unread-count", h.Notifications.GetUnreadCount)
				r.Put("/read-all", h.Notifications.MarkAllRead)
				r.Put("/{id}/read", h.Notifications.MarkRead)
				r.Delete("/{id}", h.Notifications.DeleteNotification)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.Users.GetUsers)
				r.Post("/", h.Users.PostUser)
				r.Get("/{id}", h.Users.GetUserByID)
				r.Put("/{id}", h.Users.PutUser)
			})
		})

		r.Route("/admin/tasks", func(r chi.Router) {
			r.Get("/deleted", h.Tasks.GetDeletedTasks)    // GET /admin/tasks/deleted
			r.Post("/{id}/restore", h.Tasks.RestoreTask) // POST /admin/tasks/{id}/restore
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responseWithError(w, http.StatusNotFound, "маршрут не найден")
	})
}
