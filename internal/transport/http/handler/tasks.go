package handler

import (
	"context"
	"net/http"

	"github.com/go-mentoring-notifier/internal/domain"
)

type reminderRunner interface {
	Run(ctx context.Context) (domain.ReminderWindow, error)
}

// TaskHandler exposes scheduled jobs to an external scheduler.
type TaskHandler struct {
	reminders reminderRunner
}

func NewTaskHandler(reminders reminderRunner) *TaskHandler {
	return &TaskHandler{reminders: reminders}
}

// Reminders runs one pending-invitation sweep and acknowledges with an empty object.
func (h *TaskHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	if _, err := h.reminders.Run(r.Context()); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}
