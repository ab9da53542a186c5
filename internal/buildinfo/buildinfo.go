// Package buildinfo reports which commit the binary was built from and,
// cosmetically, the latest commit on GitHub.
package buildinfo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const defaultAPI = "https://api.github.com"

// Revision returns the short VCS revision embedded by the Go toolchain, or "dev".
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	rev, dirty := "", false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return "dev"
	}
	rev = Short(rev)
	if dirty {
		rev += "+"
	}
	return rev
}

// Short trims a commit hash to seven characters.
func Short(sha string) string {
	sha = strings.TrimSpace(sha)
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

type Fetcher struct {
	Client  *http.Client
	BaseURL string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:  &http.Client{Timeout: 5 * time.Second},
		BaseURL: defaultAPI,
	}
}

// LatestCommit returns the sha of HEAD for repo ("owner/name").
func (f *Fetcher) LatestCommit(ctx context.Context, repo string) (string, error) {
	repo = strings.Trim(strings.TrimSpace(repo), "/")
	if strings.Count(repo, "/") != 1 {
		return "", fmt.Errorf("repo must be owner/name, got %q", repo)
	}
	url := strings.TrimRight(f.BaseURL, "/") + "/repos/" + repo + "/commits/HEAD"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build commit request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	res, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("commit request failed: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read commit response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "message").String()
		return "", fmt.Errorf("commit request status %d: %s", res.StatusCode, msg)
	}
	sha := gjson.GetBytes(body, "sha").String()
	if sha == "" {
		return "", fmt.Errorf("commit response missing sha")
	}
	return sha, nil
}
