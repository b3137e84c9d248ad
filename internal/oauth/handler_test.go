package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSource(t *testing.T) {
	cfg := Config{
		ClientID:     "client-1",
		ClientSecret: "secret",
		TokenURL:     "https://auth.example.com/token",
		Scopes:       []string{"chat"},
	}

	ts := TokenSource(cfg)
	assert.Equal(t, "client-1", ts.ClientID)
	assert.Equal(t, "secret", ts.ClientSecret)
	assert.Equal(t, "https://auth.example.com/token", ts.TokenURL)
	assert.Equal(t, []string{"chat"}, ts.Scopes)
}
