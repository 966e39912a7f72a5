package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Manifest media types accepted when resolving a tag. The registry answers
// with the digest of whichever representation it stores.
var manifestAccept = strings.Join([]string{
	ocispec.MediaTypeImageManifest,
	ocispec.MediaTypeImageIndex,
	"application/vnd.docker.distribution.manifest.v2+json",
	"application/vnd.docker.distribution.manifest.list.v2+json",
}, ", ")

// HTTP client for the local backup registry's manifest and tag API.
type Client struct {
	base string // Base URL, e.g. "http://localhost:5000".
	http *http.Client
}

// Creates a client for the registry at the given host:port address.
//
// The registry only ever binds the loopback interface, so the client speaks
// plain HTTP and never negotiates TLS.
func NewClient(address string) *Client {
	return &Client{
		base: "http://" + address,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Checks that the registry answers its base endpoint.
//
// An authentication challenge still counts as ready; only connection
// failures and server errors do not.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/v2/", "")
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("registry responded %s", resp.Status)
	}
	return nil
}

// Resolves the manifest digest currently behind a repository tag.
//
// Returns [ErrNotFound] when the repository or tag does not exist.
func (c *Client) ResolveTag(ctx context.Context, repository, tag string) (digest.Digest, error) {
	resp, err := c.do(ctx, http.MethodHead, "/v2/"+repository+"/manifests/"+tag, manifestAccept)
	if err != nil {
		return "", err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s:%s", ErrNotFound, repository, tag)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("resolving %s:%s: registry responded %s", repository, tag, resp.Status)
	}

	d, err := digest.Parse(resp.Header.Get("Docker-Content-Digest"))
	if err != nil {
		return "", fmt.Errorf("resolving %s:%s: invalid digest header: %w", repository, tag, err)
	}
	return d, nil
}

// Deletes a manifest by digest.
//
// Returns [ErrNotFound] when the manifest is already absent; callers
// deleting content treat that as "already gone", not as failure.
func (c *Client) DeleteManifest(ctx context.Context, repository string, d digest.Digest) error {
	resp, err := c.do(ctx, http.MethodDelete, "/v2/"+repository+"/manifests/"+d.String(), "")
	if err != nil {
		return err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s@%s", ErrNotFound, repository, d)
	case resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK:
		return fmt.Errorf("deleting %s@%s: registry responded %s", repository, d, resp.Status)
	}
	return nil
}

// Returns every repository name the registry knows.
func (c *Client) Repositories(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v2/_catalog", "")
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing repositories: registry responded %s", resp.Status)
	}

	var catalog struct {
		Repositories []string `json:"repositories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	return catalog.Repositories, nil
}

// Returns the tags of a repository.
//
// A repository whose last tag was deleted stays in the catalog with no
// tags; that surfaces here as an empty slice, or as [ErrNotFound] once the
// registry forgets the repository entirely.
func (c *Client) Tags(ctx context.Context, repository string) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v2/"+repository+"/tags/list", "")
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, repository)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("listing tags of %s: registry responded %s", repository, resp.Status)
	}

	var list struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("listing tags of %s: %w", repository, err)
	}
	return list.Tags, nil
}

func (c *Client) do(ctx context.Context, method, path, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}

// Drains and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
