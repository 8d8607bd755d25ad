// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package registry is a read-only client for the provider registry's
// versions API. It answers one question: which published releases of a
// provider exist, and does a version constraint match any of them.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	goversion "github.com/hashicorp/go-version"

	"github.com/tfcheck/tfcheck/internal/cacheutil"
	"github.com/tfcheck/tfcheck/internal/log"
)

// DefaultHost is the public provider registry.
const DefaultHost = "registry.terraform.io"

// defaultNamespace is assumed when a source address has no namespace, the
// same shorthand the provisioning tools accept ("google" = "hashicorp/google").
const defaultNamespace = "hashicorp"

// Client queries a provider registry's v1 versions endpoint.
type Client struct {
	host string
	http *retryablehttp.Client
}

// Option mutates a Client under construction.
type Option func(*Client)

// WithHost points the client at a registry other than the public one.
// Scheme-qualified hosts (httptest servers) are used verbatim.
func WithHost(host string) Option {
	return func(c *Client) {
		if host != "" {
			c.host = host
		}
	}
}

// WithHTTPClient substitutes the retrying HTTP client.
func WithHTTPClient(hc *retryablehttp.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New returns a registry client for the public registry unless overridden.
func New(options ...Option) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 3
	hc.Logger = nil

	c := &Client{
		host: DefaultHost,
		http: hc,
	}
	for _, option := range options {
		option(c)
	}

	return c
}

// Source is a parsed provider source address.
type Source struct {
	Host      string
	Namespace string
	Type      string
}

// String renders the source the way the registry addresses it.
func (s Source) String() string {
	return fmt.Sprintf("%s/%s/%s", s.Host, s.Namespace, s.Type)
}

// ParseSource normalizes a provider source address. A bare type name gets the
// default namespace, a two-part address gets the default host, and a
// three-part address is taken as host/namespace/type.
func ParseSource(source string) (Source, error) {
	parts := strings.Split(strings.TrimSpace(source), "/")

	for _, part := range parts {
		if part == "" {
			return Source{}, fmt.Errorf("invalid provider source %q", source)
		}
	}

	switch len(parts) {
	case 1:
		return Source{Host: DefaultHost, Namespace: defaultNamespace, Type: parts[0]}, nil
	case 2:
		return Source{Host: DefaultHost, Namespace: parts[0], Type: parts[1]}, nil
	case 3:
		return Source{Host: parts[0], Namespace: parts[1], Type: parts[2]}, nil
	default:
		return Source{}, fmt.Errorf("invalid provider source %q", source)
	}
}

// versionsResponse is the shape of the v1 versions endpoint.
type versionsResponse struct {
	Versions []struct {
		Version string `json:"version"`
	} `json:"versions"`
}

// Versions returns the published releases for a provider source, descending.
// Responses are cached on disk keyed by the normalized source address.
func (c *Client) Versions(ctx context.Context, source string) ([]*goversion.Version, error) {
	src, err := ParseSource(source)
	if err != nil {
		return nil, err
	}
	if src.Host == DefaultHost && c.host != DefaultHost {
		src.Host = c.host
	}

	body, err := c.fetchVersions(ctx, src)
	if err != nil {
		return nil, err
	}

	var decoded versionsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode registry response for %s: %w", src, err)
	}

	var versions []*goversion.Version
	for _, v := range decoded.Versions {
		parsed, err := goversion.NewVersion(v.Version)
		if err != nil {
			log.Debugf("skipping unparseable release %q for %s", v.Version, src)
			continue
		}
		versions = append(versions, parsed)
	}

	sort.Sort(sort.Reverse(goversion.Collection(versions)))

	return versions, nil
}

// Satisfiable reports whether any published release of source matches the
// constraint, along with the newest release for context. An empty constraint
// is satisfied by any release.
func (c *Client) Satisfiable(ctx context.Context, source string, constraint string) (bool, string, error) {
	versions, err := c.Versions(ctx, source)
	if err != nil {
		return false, "", err
	}
	if len(versions) == 0 {
		return false, "", nil
	}

	latest := versions[0].Original()
	if constraint == "" {
		return true, latest, nil
	}

	constraints, err := goversion.NewConstraint(constraint)
	if err != nil {
		return false, latest, fmt.Errorf("invalid constraint %q: %w", constraint, err)
	}

	for _, v := range versions {
		if constraints.Check(v) {
			return true, latest, nil
		}
	}

	return false, latest, nil
}

// fetchVersions gets the raw versions document, preferring the disk cache.
func (c *Client) fetchVersions(ctx context.Context, src Source) ([]byte, error) {
	sub := []string{"registry", src.Host, src.Namespace}
	if entry, ok := cacheutil.Read(sub, src.Type); ok {
		log.Tracef("registry cache hit for %s", src)
		return entry.Data, nil
	}

	endpoint := c.endpoint(src)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request for %s failed: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("provider %s/%s not found on %s", src.Namespace, src.Type, src.Host)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry request for %s failed: http response code %d", src, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry response for %s: %w", src, err)
	}

	if err := cacheutil.Write(sub, src.Type, body); err != nil {
		log.Debugf("failed to cache registry response for %s: %v", src, err)
	}

	return body, nil
}

// endpoint builds the v1 versions URL for a source. A host that already
// carries a scheme (emulators, test servers) is used as-is.
func (c *Client) endpoint(src Source) string {
	host := src.Host
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	return host + "/v1/providers/" +
		url.PathEscape(src.Namespace) + "/" +
		url.PathEscape(src.Type) + "/versions"
}
