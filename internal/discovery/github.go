package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tangentlab/switchyard/pkg/types"
)

const (
	defaultAPIBase = "https://api.github.com"
	defaultRawBase = "https://raw.githubusercontent.com"
)

// Fetcher lists the installable files of a remote repository.
type Fetcher interface {
	ListTree(ctx context.Context, repo types.Repository) ([]types.DiscoverableItem, error)
}

// RateLimit carries the GitHub rate-limit headers of a failed request.
type RateLimit struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	Reset     time.Time `json:"reset"`
}

// RemoteError is a non-success response from the GitHub API. It unwraps to
// ErrRemote, or to ErrNotFound for missing repositories.
type RemoteError struct {
	Status  int
	Message string
	Rate    *RateLimit
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("github api: status %d", e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Rate != nil && e.Rate.Remaining == 0 {
		msg += fmt.Sprintf(" (rate limit %d exhausted, resets %s)", e.Rate.Limit, e.Rate.Reset.Format(time.RFC3339))
	}
	return msg
}

func (e *RemoteError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return types.ErrNotFound
	}
	return types.ErrRemote
}

// GitHubClient fetches repository trees via the git-trees API. A personal
// access token raises the rate limit and grants private-repo access; the
// client works unauthenticated without one.
type GitHubClient struct {
	http    *http.Client
	base    string
	rawBase string
	token   string
}

// NewGitHubClient returns a client using the given token ("" for anonymous
// access). Timeouts come from the caller's context.
func NewGitHubClient(token string) *GitHubClient {
	return &GitHubClient{http: &http.Client{}, base: defaultAPIBase, rawBase: defaultRawBase, token: token}
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		SHA  string `json:"sha"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// ListTree fetches the recursive tree of repo's branch and returns every
// markdown file under a resource kind directory.
func (c *GitHubClient) ListTree(ctx context.Context, repo types.Repository) ([]types.DiscoverableItem, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", c.base, repo.Owner, repo.Name, repo.Branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		remoteErr := &RemoteError{Status: resp.StatusCode, Rate: rateLimitFrom(resp.Header)}
		var body struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			remoteErr.Message = body.Message
		}
		return nil, remoteErr
	}

	var tree treeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		return nil, fmt.Errorf("%w: decode tree: %v", types.ErrRemote, err)
	}

	var items []types.DiscoverableItem
	for _, entry := range tree.Tree {
		if entry.Type != "blob" || !strings.HasSuffix(entry.Path, ".md") {
			continue
		}
		kind, rel, ok := splitKindPath(entry.Path)
		if !ok {
			continue
		}
		id := types.ParseIdentity(kind, strings.TrimSuffix(rel, ".md"))
		items = append(items, types.DiscoverableItem{
			Kind:       kind,
			Namespace:  id.Namespace,
			Filename:   id.Filename,
			Path:       entry.Path,
			SHA:        entry.SHA,
			RepoOwner:  repo.Owner,
			RepoName:   repo.Name,
			RepoBranch: repo.Branch,
		})
	}
	return items, nil
}

// FetchContent downloads the raw file content of a discovered item.
func (c *GitHubClient) FetchContent(ctx context.Context, item types.DiscoverableItem) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawBase, item.RepoOwner, item.RepoName, item.RepoBranch, item.Path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{Status: resp.StatusCode, Rate: rateLimitFrom(resp.Header)}
	}
	return io.ReadAll(resp.Body)
}

// splitKindPath matches "<kind-dir>/(ns/)?name.md".
func splitKindPath(path string) (types.ResourceKind, string, bool) {
	for _, kind := range types.AllKinds {
		if rel, ok := strings.CutPrefix(path, kind.Dir()+"/"); ok {
			return kind, rel, true
		}
	}
	return "", "", false
}

func rateLimitFrom(h http.Header) *RateLimit {
	limitHeader := h.Get("X-Ratelimit-Limit")
	if limitHeader == "" {
		return nil
	}
	limit, _ := strconv.Atoi(limitHeader)
	remaining, _ := strconv.Atoi(h.Get("X-Ratelimit-Remaining"))
	rate := &RateLimit{Limit: limit, Remaining: remaining}
	if resetUnix, err := strconv.ParseInt(h.Get("X-Ratelimit-Reset"), 10, 64); err == nil {
		rate.Reset = time.Unix(resetUnix, 0).UTC()
	}
	return rate
}
