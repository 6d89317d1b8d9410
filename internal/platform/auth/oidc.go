package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OIDCProvider holds the discovered endpoints of an OpenID Connect issuer.
type OIDCProvider struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// NewOIDCProvider discovers the issuer's configuration from the standard
// well-known endpoint.
func NewOIDCProvider(issuer string) (*OIDCProvider, error) {
	url := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}

	var provider OIDCProvider
	if err := json.NewDecoder(resp.Body).Decode(&provider); err != nil {
		return nil, fmt.Errorf("decoding discovery response: %w", err)
	}
	if provider.JWKSURI == "" {
		return nil, fmt.Errorf("discovery response has no jwks_uri")
	}
	return &provider, nil
}
