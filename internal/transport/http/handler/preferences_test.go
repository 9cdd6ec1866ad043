package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPreferenceSvc struct{ mock.Mock }

func (m *mockPreferenceSvc) IsEnabled(ctx context.Context, userID string, kind domain.NotificationKind, ch domain.Channel) (bool, error) {
	args := m.Called(ctx, userID, kind, ch)
	return args.Bool(0), args.Error(1)
}

func (m *mockPreferenceSvc) Get(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.NotificationPreference); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPreferenceSvc) Update(ctx context.Context, userID string, flags map[string]bool) (*domain.NotificationPreference, error) {
	args := m.Called(ctx, userID, flags)
	if p, _ := args.Get(0).(*domain.NotificationPreference); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPreferenceSvc) CreateDefaults(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.NotificationPreference); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestPreferenceGet_HappyPath(t *testing.T) {
	svc := &mockPreferenceSvc{}
	flag := domain.PreferenceFlag(domain.NotifyEventCreated, domain.ChannelEmail)
	svc.On("Get", mock.Anything, "u1").Return(&domain.NotificationPreference{UserID: "u1", Flags: map[string]bool{flag: true}}, nil)
	h := NewPreferenceHandler(svc)

	rr := httptest.NewRecorder()
	h.Get(rr, asUser(httptest.NewRequest(http.MethodGet, "/v1/preferences", nil), "u1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var got domain.NotificationPreference
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.True(t, got.Flags[flag])
	svc.AssertExpectations(t)
}

func TestPreferenceUpdate_UnknownFlagRejected(t *testing.T) {
	svc := &mockPreferenceSvc{}
	h := NewPreferenceHandler(svc)

	body := bytes.NewBufferString(`{"flags":{"pushSomethingElse":true}}`)
	rr := httptest.NewRecorder()
	h.Update(rr, asUser(httptest.NewRequest(http.MethodPut, "/v1/preferences", body), "u1"))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestPreferenceUpdate_HappyPath(t *testing.T) {
	svc := &mockPreferenceSvc{}
	flag := domain.PreferenceFlag(domain.NotifyEventCancelled, domain.ChannelSMS)
	flags := map[string]bool{flag: true}
	svc.On("Update", mock.Anything, "u1", flags).Return(&domain.NotificationPreference{UserID: "u1", Flags: flags}, nil)
	h := NewPreferenceHandler(svc)

	body, _ := json.Marshal(domain.UpdatePreferencesRequest{Flags: flags})
	rr := httptest.NewRecorder()
	h.Update(rr, asUser(httptest.NewRequest(http.MethodPut, "/v1/preferences", bytes.NewReader(body)), "u1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestPreferenceUpdate_MissingClaims(t *testing.T) {
	h := NewPreferenceHandler(&mockPreferenceSvc{})
	rr := httptest.NewRecorder()
	h.Update(rr, httptest.NewRequest(http.MethodPut, "/v1/preferences", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
