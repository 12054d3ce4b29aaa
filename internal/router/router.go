// Package router queries the local reverse proxy (Traefik) for the hosts
// it currently routes to a project.
//
// Discovery is best-effort: the router may not be running, may not be
// reachable on the root domain, or may answer with something unexpected.
// Every failure is returned to the caller, which degrades to the static
// domain list.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout bounds a discovery request.
const DefaultTimeout = 2 * time.Second

// apiPort is the router dashboard/API port.
const apiPort = 8080

// hostRule matches a Traefik rule consisting only of Host(`...`).
var hostRule = regexp.MustCompile("^Host\\(`([^()]*)`\\)$")

// Router is one entry of the /api/http/routers payload.
type Router struct {
	Name    string `json:"name"`
	Service string `json:"service"`
	Rule    string `json:"rule"`
}

// Client talks to the router API.
type Client struct {
	// BaseURL overrides "http://<root>:8080" (used by tests).
	BaseURL string

	HTTPClient *http.Client
}

// NewClient creates a client for the router serving rootDomain.
func NewClient(rootDomain string) *Client {
	return &Client{
		BaseURL:    fmt.Sprintf("http://%s:%d", rootDomain, apiPort),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Routers fetches every HTTP router known to the proxy.
func (c *Client) Routers(ctx context.Context) ([]Router, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/http/routers", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("router API returned %s", resp.Status)
	}

	var routers []Router
	if err := json.NewDecoder(resp.Body).Decode(&routers); err != nil {
		return nil, fmt.Errorf("invalid router API payload: %w", err)
	}
	return routers, nil
}

// Hosts returns the hosts routed to projectName, in payload order.
func (c *Client) Hosts(ctx context.Context, projectName string) ([]string, error) {
	routers, err := c.Routers(ctx)
	if err != nil {
		return nil, err
	}
	return ProjectHosts(routers, projectName), nil
}

// ProjectHosts extracts the hosts of the project's docker-provided
// routers. The frontend dev-server router is skipped, and so is any
// router whose rule is not a plain Host() match.
func ProjectHosts(routers []Router, projectName string) []string {
	namePattern := regexp.MustCompile("^" + regexp.QuoteMeta(projectName) + "-(.*)@docker$")
	frontend := "frontend-" + projectName

	var hosts []string
	for _, r := range routers {
		if !namePattern.MatchString(r.Name) {
			continue
		}
		if r.Service == frontend {
			continue
		}
		m := hostRule.FindStringSubmatch(r.Rule)
		if m == nil {
			continue
		}
		hosts = append(hosts, strings.Split(m[1], "`, `")...)
	}
	return hosts
}
