package google

import (
	"context"
	"fmt"

	"github.com/go-mentoring-notifier/internal/domain"
	"google.golang.org/api/idtoken"
)

// Verifier accepts Google-signed OIDC tokens, such as the ones Cloud Scheduler
// attaches to HTTP targets, from an allow-list of service accounts.
type Verifier struct {
	audience string
	allowed  map[string]bool
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewVerifier(audience string, serviceAccounts []string) *Verifier {
	allowed := make(map[string]bool, len(serviceAccounts))
	for _, sa := range serviceAccounts {
		if sa != "" {
			allowed[sa] = true
		}
	}
	return &Verifier{audience: audience, allowed: allowed, validate: idtoken.Validate}
}

// Verify validates the token and returns the caller's service-account email.
// Returns a domain.ErrUnauthorized-wrapped error if the token is invalid or the
// caller is not allowed.
func (v *Verifier) Verify(ctx context.Context, token string) (string, error) {
	p, err := v.validate(ctx, token, v.audience)
	if err != nil {
		return "", fmt.Errorf("invalid google token: %w", domain.ErrUnauthorized)
	}
	email, _ := p.Claims["email"].(string)
	verified, _ := p.Claims["email_verified"].(bool)
	if !verified || !v.allowed[email] {
		return "", fmt.Errorf("caller %q not allowed: %w", email, domain.ErrUnauthorized)
	}
	return email, nil
}
