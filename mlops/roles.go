package mlops

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// RoleFinder locates an execution role for services that need one when the
// caller did not name one explicitly.
type RoleFinder struct {
	iam IAMClient
	env Environment
}

// NewRoleFinder creates a RoleFinder probing through the given IAM client.
func NewRoleFinder(iamc IAMClient, env Environment) *RoleFinder {
	return &RoleFinder{iam: iamc, env: env}
}

// candidates lists role names to probe, most specific first. Entries may
// carry an IAM path; GetRole wants the bare name.
func (f *RoleFinder) candidates() []string {
	names := []string{
		"service-role/AmazonSageMaker-ExecutionRole",
		"SageMakerExecutionRole",
		"sagemaker-execution-role",
	}
	if fn := f.env.functionName(); fn != "" {
		names = append(names, fn+"-role")
	}
	return append(names, "lambda-execution-role")
}

// FindExecutionRole returns the ARN of the first candidate role that
// exists, or empty when none do. The probe is best effort: lookup failures
// other than a missing role are logged and skipped, and callers decide
// whether going without a role is an error.
func (f *RoleFinder) FindExecutionRole(ctx context.Context) string {
	for _, candidate := range f.candidates() {
		name := candidate
		if i := strings.LastIndex(candidate, "/"); i >= 0 {
			name = candidate[i+1:]
		}

		out, err := f.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
		switch {
		case err == nil:
			arn := aws.ToString(out.Role.Arn)
			Log(ctx).Info("auto-detected execution role",
				zap.String("role_name", name), zap.String("role_arn", arn))
			return arn
		case isRoleNotFound(err):
			continue
		default:
			Log(ctx).Warn("could not look up role candidate",
				zap.String("role_name", name), zap.Error(err))
		}
	}

	Log(ctx).Info("no execution role candidate found")
	return ""
}

func isRoleNotFound(err error) bool {
	var notFound *iamtypes.NoSuchEntityException
	return errors.As(err, &notFound)
}
