package identity

import (
	"context"
	"fmt"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"

	"github.com/bd31600/planning/internal/utils"
)

// GoogleVerifier validates Google/Firebase ID tokens against the configured
// OAuth client id.
type GoogleVerifier struct {
	ClientID string
}

func (g *GoogleVerifier) Verify(ctx context.Context, token string) (string, error) {
	v := googleAuthIDTokenVerifier.Verifier{}
	if err := v.VerifyIDToken(token, []string{g.ClientID}); err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrAuthentication, err)
	}

	claimSet, err := googleAuthIDTokenVerifier.Decode(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrAuthentication, err)
	}
	if claimSet.Email == "" {
		return "", fmt.Errorf("%w: token carries no email", utils.ErrAuthentication)
	}
	return claimSet.Email, nil
}
