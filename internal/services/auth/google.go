package services

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// IDTokenVerifier реализует GoogleVerifier поверх google.golang.org/api/idtoken.
type IDTokenVerifier struct {
	clientID string
}

// NewIDTokenVerifier создает новый экземпляр IDTokenVerifier.
func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{clientID: clientID}
}

// Verify проверяет подпись и аудиторию ID-токена и извлекает данные владельца.
func (v *IDTokenVerifier) Verify(ctx context.Context, token string) (*GoogleIdentity, error) {
	const op = "auth.IDTokenVerifier.Verify"
	payload, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if email == "" {
		return nil, fmt.Errorf("%s: token has no email claim", op)
	}

	return &GoogleIdentity{
		GoogleID: payload.Subject,
		Email:    email,
		Name:     name,
	}, nil
}
