// Package identity verifies bearer credentials issued by the external
// identity provider. The backend never issues credentials of its own; all it
// needs from a token is the verified email.
package identity

import "context"

type Verifier interface {
	// Verify validates the raw bearer token and returns the email it
	// asserts. Any failure is an authentication failure.
	Verify(ctx context.Context, token string) (string, error)
}
