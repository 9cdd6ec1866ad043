package fcm

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMessenger struct{ mock.Mock }

func (m *mockMessenger) SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	args := m.Called(ctx, msg)
	if r := args.Get(0); r != nil {
		return r.(*messaging.BatchResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessenger) SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error) {
	args := m.Called(ctx, tokens, topic)
	if r := args.Get(0); r != nil {
		return r.(*messaging.TopicManagementResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessenger) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error) {
	args := m.Called(ctx, tokens, topic)
	if r := args.Get(0); r != nil {
		return r.(*messaging.TopicManagementResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestMulticast_MapsResponsesInOrder(t *testing.T) {
	m := new(mockMessenger)
	c := &Client{msg: m}
	transient := errors.New("unavailable")

	m.On("SendEachForMulticast", mock.Anything, mock.MatchedBy(func(msg *messaging.MulticastMessage) bool {
		return msg.Notification.Title == "Mentoring" && msg.Data["kind"] == "EventCancelled" && len(msg.Tokens) == 2
	})).Return(&messaging.BatchResponse{
		SuccessCount: 1,
		FailureCount: 1,
		Responses: []*messaging.SendResponse{
			{Success: true, MessageID: "m1"},
			{Success: false, Error: transient},
		},
	}, nil)

	res, err := c.Multicast(context.Background(), domain.PushMessage{
		Title: "Mentoring",
		Body:  "cancelled",
		Data:  map[string]string{"kind": "EventCancelled"},
	}, []string{"tok-a", "tok-b"})

	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "tok-a", res[0].DeviceID)
	assert.NoError(t, res[0].Err)
	assert.Equal(t, "tok-b", res[1].DeviceID)
	assert.ErrorIs(t, res[1].Err, transient)
	assert.False(t, res[1].Invalid)
}

func TestMulticast_TransportError(t *testing.T) {
	m := new(mockMessenger)
	c := &Client{msg: m}
	m.On("SendEachForMulticast", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: timeout"))

	_, err := c.Multicast(context.Background(), domain.PushMessage{}, []string{"a"})
	assert.Error(t, err)
}

func TestMulticast_RejectsOversizedBatch(t *testing.T) {
	c := &Client{msg: new(mockMessenger)}
	tokens := make([]string, MaxMulticastTokens+1)

	_, err := c.Multicast(context.Background(), domain.PushMessage{}, tokens)
	assert.Error(t, err)
}

func TestIsPermanent_TransientErrors(t *testing.T) {
	assert.False(t, isPermanent(nil))
	assert.False(t, isPermanent(errors.New("internal error")))
}

func TestUnsubscribe_UsesUserTopic(t *testing.T) {
	m := new(mockMessenger)
	c := &Client{msg: m}
	m.On("UnsubscribeFromTopic", mock.Anything, []string{"tok"}, "user-u1").
		Return(&messaging.TopicManagementResponse{SuccessCount: 1}, nil)

	require.NoError(t, c.Unsubscribe(context.Background(), "u1", "tok"))
	m.AssertExpectations(t)
}

func TestSubscribe_ReportsPerTokenFailure(t *testing.T) {
	m := new(mockMessenger)
	c := &Client{msg: m}
	m.On("SubscribeToTopic", mock.Anything, []string{"tok"}, "user-u1").
		Return(&messaging.TopicManagementResponse{
			FailureCount: 1,
			Errors:       []*messaging.ErrorInfo{{Index: 0, Reason: "invalid-argument"}},
		}, nil)

	err := c.Subscribe(context.Background(), "u1", "tok")
	assert.ErrorContains(t, err, "invalid-argument")
}
