package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockReminders struct{ mock.Mock }

func (m *mockReminders) Run(ctx context.Context) (domain.ReminderWindow, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ReminderWindow), args.Error(1)
}

func TestReminders_AcknowledgesEmpty(t *testing.T) {
	run := &mockReminders{}
	run.On("Run", mock.Anything).Return(domain.ReminderWindow{}, nil)
	h := NewTaskHandler(run)

	rr := httptest.NewRecorder()
	h.Reminders(rr, httptest.NewRequest(http.MethodPost, "/v1/tasks/reminders", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{}`, rr.Body.String())
	run.AssertExpectations(t)
}

func TestReminders_Failure(t *testing.T) {
	run := &mockReminders{}
	run.On("Run", mock.Anything).Return(domain.ReminderWindow{}, errors.New("scan failed"))
	h := NewTaskHandler(run)

	rr := httptest.NewRecorder()
	h.Reminders(rr, httptest.NewRequest(http.MethodPost, "/v1/tasks/reminders", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
