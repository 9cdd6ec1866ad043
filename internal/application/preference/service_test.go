package preference

import (
	"context"
	"errors"
	"testing"

	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPreferenceStore struct{ mock.Mock }

func (m *mockPreferenceStore) Get(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.NotificationPreference); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPreferenceStore) Put(ctx context.Context, p *domain.NotificationPreference) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockPreferenceStore) UpdateFlags(ctx context.Context, userID string, flags map[string]bool) error {
	return m.Called(ctx, userID, flags).Error(0)
}

func TestIsEnabled_NoRowIsAllDisabled(t *testing.T) {
	repo := &mockPreferenceStore{}
	repo.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	svc := NewService(repo)

	for _, kind := range domain.NotificationKinds {
		for _, ch := range domain.Channels {
			on, err := svc.IsEnabled(context.Background(), "u1", kind, ch)
			require.NoError(t, err)
			assert.False(t, on, "%s/%s", ch, kind)
		}
	}
}

func TestIsEnabled_StoredFlagWins(t *testing.T) {
	repo := &mockPreferenceStore{}
	repo.On("Get", mock.Anything, "u1").Return(&domain.NotificationPreference{
		UserID: "u1",
		Flags:  map[string]bool{"pushEventCancelled": false, "smsEventCreated": true},
	}, nil)
	svc := NewService(repo)

	on, err := svc.IsEnabled(context.Background(), "u1", domain.NotifyEventCancelled, domain.ChannelPush)
	require.NoError(t, err)
	assert.False(t, on)

	on, err = svc.IsEnabled(context.Background(), "u1", domain.NotifyEventCreated, domain.ChannelSMS)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestIsEnabled_MissingFlagFallsBackToDefault(t *testing.T) {
	repo := &mockPreferenceStore{}
	repo.On("Get", mock.Anything, "u1").Return(&domain.NotificationPreference{
		UserID: "u1",
		Flags:  map[string]bool{"pushEventCancelled": true},
	}, nil)
	svc := NewService(repo)

	on, err := svc.IsEnabled(context.Background(), "u1", domain.NotifyEventPendingInvitation, domain.ChannelEmail)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = svc.IsEnabled(context.Background(), "u1", domain.NotifyEventCreated, domain.ChannelSMS)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestIsEnabled_UnknownKind(t *testing.T) {
	svc := NewService(&mockPreferenceStore{})

	_, err := svc.IsEnabled(context.Background(), "u1", domain.NotificationKind("EventRenamed"), domain.ChannelPush)
	assert.ErrorIs(t, err, domain.ErrUnknownNotificationKind)

	_, err = svc.IsEnabled(context.Background(), "u1", domain.NotifyEventCreated, domain.Channel("fax"))
	assert.ErrorIs(t, err, domain.ErrUnknownNotificationKind)
}

func TestIsEnabled_StoreFailure(t *testing.T) {
	repo := &mockPreferenceStore{}
	repo.On("Get", mock.Anything, "u1").Return(nil, errors.New("throttled"))
	svc := NewService(repo)

	on, err := svc.IsEnabled(context.Background(), "u1", domain.NotifyEventCreated, domain.ChannelPush)
	assert.Error(t, err)
	assert.False(t, on)
}

func TestUpdate_RejectsUnknownFlags(t *testing.T) {
	repo := &mockPreferenceStore{}
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), "u1", map[string]bool{"pushEventCancelled": true, "faxEverything": true})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Contains(t, err.Error(), "faxEverything")
	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestUpdate_CreatesRowWhenAbsent(t *testing.T) {
	repo := &mockPreferenceStore{}
	repo.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	repo.On("Put", mock.Anything, mock.MatchedBy(func(p *domain.NotificationPreference) bool {
		return p.UserID == "u1" && !p.Flags["emailEventCreated"] && p.Flags["pushEventCreated"]
	})).Return(nil)
	svc := NewService(repo)

	p, err := svc.Update(context.Background(), "u1", map[string]bool{"emailEventCreated": false})
	require.NoError(t, err)
	assert.Len(t, p.Flags, len(domain.DefaultPreferenceFlags()))
	repo.AssertExpectations(t)
}

func TestUpdate_MergesIntoExistingRow(t *testing.T) {
	repo := &mockPreferenceStore{}
	repo.On("Get", mock.Anything, "u1").Return(&domain.NotificationPreference{
		UserID: "u1",
		Flags:  map[string]bool{"pushEventCancelled": false},
	}, nil)
	repo.On("UpdateFlags", mock.Anything, "u1", mock.MatchedBy(func(f map[string]bool) bool {
		return !f["pushEventCancelled"] && f["smsEventCreated"]
	})).Return(nil)
	svc := NewService(repo)

	p, err := svc.Update(context.Background(), "u1", map[string]bool{"smsEventCreated": true})
	require.NoError(t, err)
	assert.False(t, p.Flags["pushEventCancelled"])
	assert.True(t, p.Flags["smsEventCreated"])
	repo.AssertExpectations(t)
}

func TestCreateDefaults_KeepsExistingRow(t *testing.T) {
	existing := &domain.NotificationPreference{UserID: "u1", Flags: map[string]bool{"pushEventCreated": false}}
	repo := &mockPreferenceStore{}
	repo.On("Get", mock.Anything, "u1").Return(existing, nil)
	svc := NewService(repo)

	p, err := svc.CreateDefaults(context.Background(), "u1")
	require.NoError(t, err)
	assert.Same(t, existing, p)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCreateDefaults_WritesProductDefaults(t *testing.T) {
	repo := &mockPreferenceStore{}
	repo.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)
	svc := NewService(repo)

	p, err := svc.CreateDefaults(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPreferenceFlags(), p.Flags)
}

func TestGet_FillsMissingFlags(t *testing.T) {
	repo := &mockPreferenceStore{}
	repo.On("Get", mock.Anything, "u1").Return(&domain.NotificationPreference{
		UserID: "u1",
		Flags:  map[string]bool{"pushEventCreated": false, "legacyFlag": true},
	}, nil)
	svc := NewService(repo)

	p, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, p.Flags["pushEventCreated"])
	assert.True(t, p.Flags["pushEventCancelled"])
	assert.NotContains(t, p.Flags, "legacyFlag")
}
