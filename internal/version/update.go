package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// GitHubAPI is the API root update checks run against
const GitHubAPI = "https://api.github.com"

// UpdateInfo contains information about available updates.
type UpdateInfo struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
}

// gitHubRef is the part of a release or tag response the check reads
type gitHubRef struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
}

// Checker queries GitHub for newer releases
type Checker struct {
	apiBase string
	repo    string
	client  *http.Client
}

// NewChecker creates a checker against apiBase, or GitHubAPI when empty
func NewChecker(apiBase string) *Checker {
	if apiBase == "" {
		apiBase = GitHubAPI
	}
	return &Checker{
		apiBase: strings.TrimRight(apiBase, "/"),
		repo:    Repo,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Check compares current against the latest release, falling back to tags
// when the repository has no releases.
func (c *Checker) Check(ctx context.Context, current string) (UpdateInfo, error) {
	info := UpdateInfo{CurrentVersion: normalizeVersion(current)}

	var release gitHubRef
	found, err := c.getJSON(ctx, "/repos/"+c.repo+"/releases/latest", &release)
	if err != nil {
		return info, err
	}

	latest := release.TagName
	if !found {
		var tags []gitHubRef
		if _, err := c.getJSON(ctx, "/repos/"+c.repo+"/tags", &tags); err != nil {
			return info, err
		}
		if len(tags) == 0 {
			info.LatestVersion = info.CurrentVersion
			return info, nil
		}
		// Tags are returned newest first
		latest = tags[0].Name
	}

	info.LatestVersion = normalizeVersion(latest)
	info.UpdateAvailable = isNewerVersion(info.LatestVersion, info.CurrentVersion)
	return info, nil
}

// getJSON decodes path into v. A 404 reports found=false without error.
func (c *Checker) getJSON(ctx context.Context, path string, v any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.apiBase+path, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("failed to check for updates: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, fmt.Errorf("failed to parse update response: %w", err)
	}
	return true, nil
}

// normalizeVersion strips the "v" prefix if present.
func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewerVersion compares dotted versions numerically. Pre-release and
// build suffixes on a part are ignored.
func isNewerVersion(latest, current string) bool {
	latestParts := strings.Split(latest, ".")
	currentParts := strings.Split(current, ".")

	for i := 0; i < len(latestParts) && i < len(currentParts); i++ {
		l, c := leadingInt(latestParts[i]), leadingInt(currentParts[i])
		if l != c {
			return l > c
		}
	}

	return len(latestParts) > len(currentParts)
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

// InstallCommand returns the command to update the application.
func InstallCommand() string {
	return "go install github.com/" + Repo + "/cmd/magnet@latest"
}
