package mlops

import (
	"regexp"
	"strings"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/cockroachdb/errors"
)

// Validation failures become 400-coded errors whose message reaches the
// agent verbatim, so every message states what a valid value looks like.

var (
	projectNameRx    = regexp.MustCompile(`^[a-zA-Z0-9-]{1,63}$`)
	githubRepoRx     = regexp.MustCompile(`^[a-zA-Z0-9_-]+/[a-zA-Z0-9_.-]+$`)
	githubUsernameRx = regexp.MustCompile(`^[a-zA-Z0-9-]{1,39}$`)
	bucketNameRx     = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
	arnRx            = regexp.MustCompile(`^arn:aws:[a-z0-9-]+:[a-z0-9-]*:\d{12}:.+$`)
	connectionNameRx = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,32}$`)
	pipelineNameRx   = regexp.MustCompile(`^[a-zA-Z0-9-]{1,256}$`)
	trackingServerRx = regexp.MustCompile(`^[a-zA-Z0-9-]{1,256}$`)
)

// badRequest wraps err as a 400-coded error.
func badRequest(err error) error {
	return action.NewError(action.CodeBadRequest, err)
}

// Missing returns the names of required parameters that are absent or blank,
// in the order they were asked for.
func Missing(params action.Params, names ...string) []string {
	var missing []string
	for _, name := range names {
		if params.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Require checks required parameters and reports every missing name in a
// single 400 error, so the agent can repair the whole invocation in one
// turn instead of discovering gaps one at a time.
func Require(params action.Params, names ...string) error {
	missing := Missing(params, names...)
	if len(missing) == 0 {
		return nil
	}
	return badRequest(errors.Newf("missing required parameters: %s", strings.Join(missing, ", ")))
}

// OneOf checks that value is one of the allowed values for field.
func OneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return badRequest(errors.Newf("invalid %s: %q (allowed: %s)", field, value, strings.Join(allowed, ", ")))
}

// ValidateProjectName checks a SageMaker project name.
func ValidateProjectName(name string) error {
	if name == "" {
		return badRequest(errors.New("project name is required"))
	}
	if !projectNameRx.MatchString(name) {
		return badRequest(errors.New("invalid project name: must be 1-63 alphanumeric characters or hyphens"))
	}
	return nil
}

// ValidateGitHubRepo checks a repository reference in username/repo form.
func ValidateGitHubRepo(repo string) error {
	if repo == "" {
		return badRequest(errors.New("GitHub repository is required"))
	}
	if !githubRepoRx.MatchString(repo) {
		return badRequest(errors.New("invalid GitHub repository format: expected username/repo"))
	}
	return nil
}

// ValidateGitHubUsername checks a GitHub account name.
func ValidateGitHubUsername(name string) error {
	if name == "" {
		return badRequest(errors.New("GitHub username is required"))
	}
	if !githubUsernameRx.MatchString(name) {
		return badRequest(errors.New("invalid GitHub username: must be 1-39 alphanumeric characters or hyphens"))
	}
	return nil
}

// ValidateBucketName checks an S3 bucket name.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return badRequest(errors.New("S3 bucket name is required"))
	}
	if !bucketNameRx.MatchString(bucket) {
		return badRequest(errors.New("invalid S3 bucket name"))
	}
	// Label boundaries S3 rejects but the pattern above cannot express.
	if strings.Contains(bucket, "..") || strings.Contains(bucket, ".-") || strings.Contains(bucket, "-.") {
		return badRequest(errors.New("invalid S3 bucket name pattern"))
	}
	return nil
}

// ValidateARN checks the general AWS ARN format.
func ValidateARN(arn string) error {
	if arn == "" {
		return badRequest(errors.New("ARN is required"))
	}
	if !arnRx.MatchString(arn) {
		return badRequest(errors.New("invalid AWS ARN format"))
	}
	return nil
}

// ValidateConnectionName checks a CodeConnections connection name.
func ValidateConnectionName(name string) error {
	if name == "" {
		return badRequest(errors.New("connection name is required"))
	}
	if !connectionNameRx.MatchString(name) {
		return badRequest(errors.New("invalid connection name: must be 1-32 alphanumeric characters, underscores, or hyphens"))
	}
	return nil
}

// ValidateFeatureGroupName checks a SageMaker feature group name.
func ValidateFeatureGroupName(name string) error {
	if name == "" {
		return badRequest(errors.New("feature group name is required"))
	}
	if !projectNameRx.MatchString(name) {
		return badRequest(errors.New("invalid feature group name: must be 1-63 alphanumeric characters or hyphens"))
	}
	return nil
}

// ValidateModelPackageGroupName checks a SageMaker model package group
// name.
func ValidateModelPackageGroupName(name string) error {
	if name == "" {
		return badRequest(errors.New("model package group name is required"))
	}
	if !projectNameRx.MatchString(name) {
		return badRequest(errors.New("invalid model package group name: must be 1-63 alphanumeric characters or hyphens"))
	}
	return nil
}

// ValidatePipelineName checks a SageMaker pipeline name.
func ValidatePipelineName(name string) error {
	if name == "" {
		return badRequest(errors.New("pipeline name is required"))
	}
	if !pipelineNameRx.MatchString(name) {
		return badRequest(errors.New("invalid pipeline name: must be 1-256 alphanumeric characters or hyphens"))
	}
	return nil
}

// ValidateTrackingServerName checks an MLflow tracking server name.
func ValidateTrackingServerName(name string) error {
	if name == "" {
		return badRequest(errors.New("tracking server name is required"))
	}
	if !trackingServerRx.MatchString(name) {
		return badRequest(errors.New("invalid tracking server name: must be 1-256 alphanumeric characters or hyphens"))
	}
	return nil
}
