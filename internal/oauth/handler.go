// Package oauth provides an OAuth2 client-credentials token source for the
// AnswerLLM gateway, for deployments where the configured chat-completions
// endpoint requires OAuth2 rather than a static bearer token.
package oauth

import (
	"context"

	"golang.org/x/oauth2/clientcredentials"
)

// Config configures a client-credentials OAuth2 flow.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// TokenSource builds an OAuth2 client-credentials token source that renews
// itself as tokens expire.
func TokenSource(cfg Config) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
}

// BearerToken fetches one access token, suitable for use as a static bearer
// credential against AnswerLLMConfig's gateway. It does not refresh the token.
func BearerToken(ctx context.Context, cfg Config) (string, error) {
	token, err := TokenSource(cfg).Token(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}
