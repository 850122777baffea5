// Package release resolves "major.minor" version requests to concrete
// releases: OpenShift patch versions from the release controller's accepted
// streams, and AMD GPU operator versions from the ROCm GitHub releases.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

const (
	defaultOCPReleasesURL = "https://amd64.ocp.releases.ci.openshift.org/api/v1/releasestreams/accepted"
	defaultGitHubAPIURL   = "https://api.github.com"

	stableStream = "4-stable"

	gpuOperatorOwner = "ROCm"
	gpuOperatorRepo  = "gpu-operator"
)

// Resolver queries the release endpoints. Zero value is not usable; use
// NewResolver.
type Resolver struct {
	client *http.Client

	// Endpoint overrides for tests.
	ocpReleasesURL string
	githubAPIURL   string
}

// Option adjusts a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithOCPReleasesURL points OpenShift resolution at a different endpoint.
func WithOCPReleasesURL(url string) Option {
	return func(r *Resolver) { r.ocpReleasesURL = url }
}

// WithGitHubAPIURL points GitHub queries at a different endpoint.
func WithGitHubAPIURL(url string) Option {
	return func(r *Resolver) { r.githubAPIURL = url }
}

// NewResolver creates a Resolver against the public endpoints.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client:         &http.Client{Timeout: 30 * time.Second},
		ocpReleasesURL: defaultOCPReleasesURL,
		githubAPIURL:   defaultGitHubAPIURL,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// IsMinorOnly reports whether v is a bare "major.minor" request that needs
// resolution. Full "x.y.z" versions pass through untouched.
func IsMinorOnly(v string) bool {
	parts := strings.Split(v, ".")
	if len(parts) != 2 {
		return false
	}
	for _, p := range parts {
		if p == "" || strings.IndexFunc(p, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return false
		}
	}
	return true
}

// ResolveOpenShiftVersion turns a "major.minor" request into the latest
// accepted stable patch release. Full versions are returned unchanged.
func (r *Resolver) ResolveOpenShiftVersion(ctx context.Context, version string) (string, error) {
	if !IsMinorOnly(version) {
		return version, nil
	}
	return r.latestOpenShiftPatch(ctx, version)
}

func (r *Resolver) latestOpenShiftPatch(ctx context.Context, minor string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.ocpReleasesURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("querying release streams: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("release stream endpoint returned %s", resp.Status)
	}

	var streams map[string][]string
	if err := json.NewDecoder(resp.Body).Decode(&streams); err != nil {
		return "", fmt.Errorf("decoding release streams: %w", err)
	}

	tags, ok := streams[stableStream]
	if !ok {
		return "", fmt.Errorf("release stream %q not present", stableStream)
	}

	prefix := minor + "."
	var candidates []*semver.Version
	for _, tag := range tags {
		// Skip fc/rc/nightly style tags; only finished releases count.
		if !strings.HasPrefix(tag, prefix) || strings.Contains(tag, "-") {
			continue
		}
		v, err := semver.NewVersion(tag)
		if err != nil {
			continue
		}
		candidates = append(candidates, v)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no accepted stable release found for %s", minor)
	}
	sort.Sort(semver.Collection(candidates))
	return candidates[len(candidates)-1].String(), nil
}

// GPUOperatorRelease is one resolved AMD GPU operator release line.
type GPUOperatorRelease struct {
	// Version is the full x.y.z version of the newest release in the line.
	Version string
	// Certified is true once the line has shipped a patch release, the
	// point at which the certified operator catalog carries it.
	Certified bool
}

var (
	chartTagPattern  = regexp.MustCompile(`^gpu-operator-charts-v(\d+)\.(\d+)\.(\d+)$`)
	simpleTagPattern = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)$`)
)

// GPUOperatorReleases fetches the ROCm gpu-operator releases and folds them
// into one entry per minor line ("1.4" -> newest 1.4.z).
func (r *Resolver) GPUOperatorReleases(ctx context.Context) (map[string]GPUOperatorRelease, error) {
	tags, err := r.fetchReleaseTags(ctx)
	if err != nil {
		return nil, err
	}
	return parseReleaseTags(tags), nil
}

// ResolveGPUOperatorVersion turns a "major.minor" request into the newest
// release of that line. Full versions pass through with Certified inferred
// from the patch number.
func (r *Resolver) ResolveGPUOperatorVersion(ctx context.Context, version string) (GPUOperatorRelease, error) {
	if !IsMinorOnly(version) {
		v, err := semver.NewVersion(version)
		if err != nil {
			return GPUOperatorRelease{}, fmt.Errorf("invalid gpu operator version %q: %w", version, err)
		}
		return GPUOperatorRelease{Version: version, Certified: v.Patch() >= 1}, nil
	}

	releases, err := r.GPUOperatorReleases(ctx)
	if err != nil {
		return GPUOperatorRelease{}, err
	}
	rel, ok := releases[version]
	if !ok {
		known := make([]string, 0, len(releases))
		for minor := range releases {
			known = append(known, minor)
		}
		sort.Strings(known)
		return GPUOperatorRelease{}, fmt.Errorf("no gpu operator release for %s (known: %s)",
			version, strings.Join(known, ", "))
	}
	return rel, nil
}

func (r *Resolver) fetchReleaseTags(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=100", r.githubAPIURL, gpuOperatorOwner, gpuOperatorRepo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if token := githubToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying gpu-operator releases: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("github releases endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var releases []struct {
		TagName string `json:"tag_name"`
		Draft   bool   `json:"draft"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("decoding gpu-operator releases: %w", err)
	}

	tags := make([]string, 0, len(releases))
	for _, rel := range releases {
		if rel.Draft {
			continue
		}
		tags = append(tags, rel.TagName)
	}
	return tags, nil
}

func githubToken() string {
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t
	}
	return os.Getenv("GH_AUTH_TOKEN")
}

// parseReleaseTags keeps, per minor line, the highest full version seen
// across both tag shapes the repo has used.
func parseReleaseTags(tags []string) map[string]GPUOperatorRelease {
	best := map[string]*semver.Version{}
	for _, tag := range tags {
		m := chartTagPattern.FindStringSubmatch(tag)
		if m == nil {
			m = simpleTagPattern.FindStringSubmatch(tag)
		}
		if m == nil {
			continue
		}
		v, err := semver.NewVersion(fmt.Sprintf("%s.%s.%s", m[1], m[2], m[3]))
		if err != nil {
			continue
		}
		minor := fmt.Sprintf("%d.%d", v.Major(), v.Minor())
		if cur, ok := best[minor]; !ok || v.GreaterThan(cur) {
			best[minor] = v
		}
	}

	out := make(map[string]GPUOperatorRelease, len(best))
	for minor, v := range best {
		out[minor] = GPUOperatorRelease{
			Version:   v.String(),
			Certified: v.Patch() >= 1,
		}
	}
	return out
}
