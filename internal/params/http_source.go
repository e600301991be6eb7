package params

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danmuck/groupctl/internal/auth"
)

// HTTPSource reads parameters from peers that serve Routes over HTTP.
type HTTPSource struct {
	peers  map[string]string
	client *http.Client
	token  string
}

// NewHTTPSource maps peer names to base URLs such as "http://127.0.0.1:7420".
func NewHTTPSource(peers map[string]string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	m := make(map[string]string, len(peers))
	for name, addr := range peers {
		m[name] = strings.TrimRight(strings.TrimSpace(addr), "/")
	}
	return &HTTPSource{peers: m, client: client}
}

// WithToken sends token as a bearer credential on parameter reads.
func (s *HTTPSource) WithToken(token string) *HTTPSource {
	s.token = strings.TrimSpace(token)
	return s
}

func (s *HTTPSource) Available(ctx context.Context, peer string) bool {
	base, ok := s.peers[peer]
	if !ok || base == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (s *HTTPSource) Get(ctx context.Context, peer, name string) (string, bool, error) {
	base, ok := s.peers[peer]
	if !ok {
		return "", false, fmt.Errorf("params: unknown peer %q", peer)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/parameters/"+url.PathEscape(name), nil)
	if err != nil {
		return "", false, err
	}
	auth.SetBearer(req, s.token)
	resp, err := s.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("params: peer %q returned %s for %q", peer, resp.Status, name)
	}

	var body parameterBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false, fmt.Errorf("params: decode %q from %q: %w", name, peer, err)
	}
	return body.Value, true, nil
}
