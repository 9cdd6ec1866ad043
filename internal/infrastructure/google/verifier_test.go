package google

import (
	"context"
	"errors"
	"testing"

	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func stubValidate(p *idtoken.Payload, err error) func(context.Context, string, string) (*idtoken.Payload, error) {
	return func(context.Context, string, string) (*idtoken.Payload, error) { return p, err }
}

func TestVerify_AllowedServiceAccount(t *testing.T) {
	v := NewVerifier("https://notifier.example.com", []string{"scheduler@proj.iam.gserviceaccount.com"})
	v.validate = stubValidate(&idtoken.Payload{Claims: map[string]interface{}{
		"email":          "scheduler@proj.iam.gserviceaccount.com",
		"email_verified": true,
	}}, nil)

	email, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "scheduler@proj.iam.gserviceaccount.com", email)
}

func TestVerify_UnknownCaller(t *testing.T) {
	v := NewVerifier("aud", []string{"scheduler@proj.iam.gserviceaccount.com"})
	v.validate = stubValidate(&idtoken.Payload{Claims: map[string]interface{}{
		"email":          "intruder@other.iam.gserviceaccount.com",
		"email_verified": true,
	}}, nil)

	_, err := v.Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerify_InvalidToken(t *testing.T) {
	v := NewVerifier("aud", []string{"a@b"})
	v.validate = stubValidate(nil, errors.New("bad signature"))

	_, err := v.Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
