package usecase

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// PathKeyResolver treats the URL path, minus one leading slash, as the key.
// It fits stores that address objects by host-level bucket and path-level key.
type PathKeyResolver struct{}

func (PathKeyResolver) ResolveKey(accessURL string) (string, error) {
	accessURL = strings.TrimSpace(accessURL)
	if accessURL == "" {
		return "", errors.New("usecase: access url is empty")
	}
	u, err := url.Parse(accessURL)
	if err != nil {
		return "", fmt.Errorf("usecase: parse access url: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", fmt.Errorf("usecase: access url for host %q has no path", u.Host)
	}
	return key, nil
}
