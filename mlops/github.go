package mlops

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	intervalexpr "github.com/MawKKe/integer-interval-expressions-go"
	"github.com/carlmjohnson/requests"
	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
)

const (
	githubAPIHost   = "api.github.com"
	githubUserAgent = "mlops-agent"

	// maxArchiveBytes caps the downloaded zipball and maxExtractBytes the
	// total inflated size. Model-build repositories are a few megabytes;
	// anything near these limits is not one.
	maxArchiveBytes = 100 << 20
	maxExtractBytes = 500 << 20

	// maxAPIResponseBytes caps plain REST responses.
	maxAPIResponseBytes = 1 << 20
)

// allowedGitHubHosts are the only hosts an outbound GitHub request may
// name. Redirects additionally may land on GitHub-operated download hosts,
// see redirectPolicy.
var allowedGitHubHosts = []string{"api.github.com", "github.com"}

// GitHub wraps the REST calls the pipeline builder makes against
// github.com: HTTPS-only with a host allow-list, client-side rate limited,
// token auth from Secrets Manager when configured, and retries on the
// transient status set from the environment.
type GitHub struct {
	transport   http.RoundTripper
	secrets     SecretReader
	env         Environment
	limiter     *slidingLimiter
	shouldRetry func(status int) bool
	maxAttempts uint
}

// NewGitHub creates a GitHub client. It fails fast when the configured
// retry status expression does not parse or misses the statuses GitHub
// actually throttles with.
func NewGitHub(transport http.RoundTripper, secrets SecretReader, env Environment) (*GitHub, error) {
	codes := env.githubRetryStatusCodes()
	if err := ValidateRetryStatusCodes(codes, DefaultRequiredRetryStatusCodes...); err != nil {
		return nil, err
	}

	parsed, err := intervalexpr.ParseExpression(codes)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse retry status codes %q", codes)
	}

	attempts := env.githubRetryMaxAttempts()
	if attempts < 1 {
		attempts = 1
	}

	return &GitHub{
		transport:   transport,
		secrets:     secrets,
		env:         env,
		limiter:     newSlidingLimiter(env.githubRateLimit(), env.githubRatePeriod()),
		shouldRetry: parsed.Matches,
		maxAttempts: uint(attempts),
	}, nil
}

// CheckRepoContents reports whether the repository root holds any files. A
// missing or empty repository means the caller seeds starter files instead
// of downloading.
func (g *GitHub) CheckRepoContents(ctx context.Context, fullName string) (bool, error) {
	if err := ValidateGitHubRepo(fullName); err != nil {
		return false, err
	}

	endpoint := fmt.Sprintf("https://%s/repos/%s/contents", githubAPIHost, fullName)
	status, body, err := g.fetch(ctx, endpoint, "application/vnd.github+json", maxAPIResponseBytes)
	if err != nil {
		return false, err
	}

	switch {
	case status == http.StatusNotFound:
		return false, nil
	case status != http.StatusOK:
		return false, errors.Newf("GitHub contents check for %s returned status %d", fullName, status)
	}

	// The repository root always lists as an array; anything else means no
	// usable contents.
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return false, nil
	}

	return len(entries) > 0, nil
}

// DownloadArchive fetches the zipball of a branch and returns its bytes.
func (g *GitHub) DownloadArchive(ctx context.Context, fullName, branch string) ([]byte, error) {
	if err := ValidateGitHubRepo(fullName); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("https://github.com/%s/archive/refs/heads/%s.zip", fullName, branch)
	status, body, err := g.fetch(ctx, endpoint, "application/zip", maxArchiveBytes)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.Newf("GitHub archive download for %s@%s returned status %d",
			fullName, branch, status)
	}

	return body, nil
}

type fetchResult struct {
	status int
	body   bytes.Buffer
}

// fetch performs one rate-limited GET with retries. The returned status is
// whatever GitHub answered outside the retry set; bodies are capped at
// maxBytes regardless of status.
func (g *GitHub) fetch(ctx context.Context, rawURL, accept string, maxBytes int64) (int, []byte, error) {
	if err := checkGitHubURL(rawURL); err != nil {
		return 0, nil, badRequest(err)
	}

	token, err := githubToken(ctx, g.secrets, g.env)
	if err != nil {
		return 0, nil, err
	}

	operation := func() (*fetchResult, error) {
		if err := g.limiter.wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		var res fetchResult
		req := requests.URL(rawURL).
			Client(g.client()).
			Header("User-Agent", githubUserAgent).
			Header("Accept", accept).
			AddValidator(func(r *http.Response) error {
				res.status = r.StatusCode
				if maxBytes > 0 && r.ContentLength > maxBytes {
					return errSizeLimit
				}
				return nil
			}).
			ToWriter(&cappedWriter{w: &res.body, limit: maxBytes})
		if token != "" {
			req = req.Bearer(token)
		}

		err := req.Fetch(ctx)
		switch {
		case errors.Is(err, errSizeLimit):
			return nil, backoff.Permanent(errors.Newf(
				"GitHub response for %s exceeds the %d byte limit", rawURL, maxBytes))
		case err != nil && ctx.Err() != nil:
			return nil, backoff.Permanent(err)
		case err != nil:
			return nil, errors.Wrapf(err, "GitHub request to %s failed", rawURL)
		case g.shouldRetry(res.status):
			return nil, errors.Newf("GitHub returned status %d for %s", res.status, rawURL)
		}

		return &res, nil
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(g.maxAttempts))
	if err != nil {
		return 0, nil, err
	}

	return res.status, res.body.Bytes(), nil
}

// client builds the HTTP client for one call. Redirects must stay on
// GitHub infrastructure; archive downloads bounce through codeload.
func (g *GitHub) client() *http.Client {
	return &http.Client{
		Transport:     g.transport,
		CheckRedirect: redirectPolicy,
	}
}

func redirectPolicy(req *http.Request, _ []*http.Request) error {
	if req.URL.Scheme != "https" {
		return errors.Newf("refusing redirect to non-HTTPS URL %q", req.URL)
	}

	host := req.URL.Hostname()
	if host != "github.com" && !strings.HasSuffix(host, ".github.com") &&
		!strings.HasSuffix(host, ".githubusercontent.com") {
		return errors.Newf("refusing redirect to host %q", host)
	}

	return nil
}

// checkGitHubURL enforces the outbound policy on the requested URL: HTTPS
// only, and only to the allow-listed hosts.
func checkGitHubURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "invalid GitHub URL %q", raw)
	}
	if u.Scheme != "https" {
		return errors.Newf("refusing non-HTTPS URL %q", raw)
	}
	if !slices.Contains(allowedGitHubHosts, u.Hostname()) {
		return errors.Newf("refusing URL with disallowed host %q", u.Hostname())
	}

	return nil
}

var errSizeLimit = errors.New("response size limit exceeded")

// cappedWriter fails the body copy once more than limit bytes arrive. A
// limit of zero or less means unlimited.
type cappedWriter struct {
	w     io.Writer
	limit int64
	n     int64
}

func (c *cappedWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	if c.limit > 0 && c.n > c.limit {
		return 0, errSizeLimit
	}

	return c.w.Write(p)
}

// ExtractZip unpacks archive bytes under dest. Entries that escape dest and
// archives that inflate past maxExtractBytes are refused; a zip from the
// network is never trusted to be well formed.
func ExtractZip(data []byte, dest string) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errors.Wrap(err, "failed to open zip archive")
	}

	var total int64
	for _, f := range reader.File {
		name := filepath.FromSlash(f.Name)
		if name == "" || !filepath.IsLocal(name) {
			return errors.Newf("refusing zip entry with unsafe path %q", f.Name)
		}

		target := filepath.Join(dest, name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return errors.Wrapf(err, "failed to create directory %q", target)
			}
			continue
		}

		n, err := extractZipFile(f, target, maxExtractBytes-total)
		total += n
		if err != nil {
			return err
		}
		if total > maxExtractBytes {
			return errors.Newf("zip archive inflates past the %d byte limit", int64(maxExtractBytes))
		}
	}

	return nil
}

func extractZipFile(f *zip.File, target string, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return 0, errors.Wrapf(err, "failed to create directory for %q", target)
	}

	src, err := f.Open()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open zip entry %q", f.Name)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to create file %q", target)
	}
	defer dst.Close()

	// Copy one byte past the remaining budget so the caller can tell an
	// exhausted budget from an exact fit.
	n, err := io.Copy(dst, io.LimitReader(src, budget+1))
	if err != nil {
		return n, errors.Wrapf(err, "failed to extract zip entry %q", f.Name)
	}

	return n, nil
}

// modelBuildRequirements pins the Python dependencies the model-build
// pipeline code runs with.
const modelBuildRequirements = `sagemaker
mlflow==2.13.2
sagemaker-mlflow
s3fs
xgboost
`

// SeedFiles returns the starter layout for an empty model-build repository
// so the first pipeline run has something to execute.
func SeedFiles(projectName string) map[string]string {
	return map[string]string{
		"README.md": fmt.Sprintf(
			"# %s - Model Build Repository\n"+
				"This repository contains the model building pipeline for the %s MLOps project.\n",
			projectName, projectName),
		"setup.py": `from setuptools import setup, find_packages
required_packages = ["sagemaker"]
setup(name="mlops-model-build", version="1.0.0", packages=find_packages(), install_requires=required_packages)
`,
		"requirements.txt":      modelBuildRequirements,
		"pipelines/__init__.py": "",
		"pipelines/run_pipeline.py": `#!/usr/bin/env python3
import argparse
def main():
    parser = argparse.ArgumentParser()
    parser.add_argument("--role-arn", required=True)
    parser.add_argument("--pipeline-name", required=True)
    args = parser.parse_args()
    print(f"Pipeline: {args.pipeline_name}")
if __name__ == "__main__":
    main()
`,
	}
}
