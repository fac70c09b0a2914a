package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ftpong/arena-server/models"
)

// httpUserGateway resolves display names against the external identity
// service. Lookups are best effort; callers fall back to a placeholder name
// when the service is unreachable.
type httpUserGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPUserGateway(baseURL string) UserGateway {
	return &httpUserGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (g *httpUserGateway) GetDisplayName(ctx context.Context, userID int, credential string) (string, error) {
	if g.baseURL == "" {
		return "", ErrNotFound
	}
	url := fmt.Sprintf("%s/users/%d", g.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity lookup for user %d: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity lookup for user %d: unexpected status %d", userID, resp.StatusCode)
	}

	var user models.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("identity lookup for user %d: decode: %w", userID, err)
	}
	return user.Nickname, nil
}

// FallbackName is used whenever the identity collaborator fails; the failure
// is logged by the caller and never blocks a broadcast.
func FallbackName(userID int) string {
	return fmt.Sprintf("player_%d", userID)
}
