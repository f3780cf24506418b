package mlops

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cctypes "github.com/aws/aws-sdk-go-v2/service/codeconnections/types"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	sagemakertypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Purpose values recorded on resources the agent provisions.
const (
	PurposeAutomation      = "MLOpsAutomation"
	PurposeMLflowArtifacts = "MLflowArtifacts"
	PurposeFeatureStore    = "FeatureStore"
	PurposeMLflowTracking  = "MLflowTracking"
	PurposeModelRegistry   = "ModelRegistry"
)

// StandardTags returns the tag set every provisioned resource carries, so
// cost allocation and cleanup can find everything the agent created.
func StandardTags(purpose string) map[string]string {
	return map[string]string{
		"project":   "mlopsagent",
		"CreatedBy": "MLOpsAgent",
		"Purpose":   purpose,
	}
}

// SageMakerTags renders the standard tags for SageMaker create calls,
// sorted by key so request shapes are deterministic.
func SageMakerTags(purpose string) []sagemakertypes.Tag {
	tags := lo.MapToSlice(StandardTags(purpose), func(k, v string) sagemakertypes.Tag {
		return sagemakertypes.Tag{Key: aws.String(k), Value: aws.String(v)}
	})
	slices.SortFunc(tags, func(a, b sagemakertypes.Tag) int {
		return strings.Compare(aws.ToString(a.Key), aws.ToString(b.Key))
	})
	return tags
}

// S3Tags renders the standard tags for a PutBucketTagging call.
func S3Tags(purpose string) []s3types.Tag {
	tags := lo.MapToSlice(StandardTags(purpose), func(k, v string) s3types.Tag {
		return s3types.Tag{Key: aws.String(k), Value: aws.String(v)}
	})
	slices.SortFunc(tags, func(a, b s3types.Tag) int {
		return strings.Compare(aws.ToString(a.Key), aws.ToString(b.Key))
	})
	return tags
}

// ConnectionTags renders the standard tags for a CreateConnection call.
func ConnectionTags(purpose string) []cctypes.Tag {
	tags := lo.MapToSlice(StandardTags(purpose), func(k, v string) cctypes.Tag {
		return cctypes.Tag{Key: aws.String(k), Value: aws.String(v)}
	})
	slices.SortFunc(tags, func(a, b cctypes.Tag) int {
		return strings.Compare(aws.ToString(a.Key), aws.ToString(b.Key))
	})
	return tags
}

// mlopsLogGroupPrefixes name the log groups created by resources this agent
// provisions: project CodeBuild jobs, project hook functions, and MLflow
// tracking servers. SageMaker creates these without tags.
var mlopsLogGroupPrefixes = []string{
	"/aws/codebuild/sagemaker-mlops-",
	"/aws/lambda/sagemaker-p-",
	"/aws/sagemaker/mlflow/",
}

// Tagger applies the standard tags to CloudWatch log groups that SageMaker
// creates on the agent's behalf.
type Tagger struct {
	logs LogsClient
}

// NewTagger creates a Tagger over the given CloudWatch Logs client.
func NewTagger(logs LogsClient) *Tagger {
	return &Tagger{logs: logs}
}

// TagLogGroupsWithPrefix tags every log group whose name starts with prefix
// and returns how many groups were tagged. Zero matches is not an error;
// MLflow log groups in particular appear minutes after server creation.
func (t *Tagger) TagLogGroupsWithPrefix(ctx context.Context, prefix string, tags map[string]string) (int, error) {
	merged := StandardTags(PurposeAutomation)
	maps.Copy(merged, tags)

	var tagged int
	pages := cloudwatchlogs.NewDescribeLogGroupsPaginator(t.logs, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return tagged, errors.Wrapf(err, "failed to describe log groups with prefix %q", prefix)
		}
		for _, group := range page.LogGroups {
			// Log group ARNs end in ":*", which TagResource rejects.
			resource := strings.TrimSuffix(aws.ToString(group.Arn), ":*")
			if resource == "" {
				continue
			}
			if _, err := t.logs.TagResource(ctx, &cloudwatchlogs.TagResourceInput{
				ResourceArn: aws.String(resource),
				Tags:        merged,
			}); err != nil {
				return tagged, errors.Wrapf(err, "failed to tag log group %q", resource)
			}
			tagged++
		}
	}
	return tagged, nil
}

// TagAgentLogGroups sweeps the known MLOps log group prefixes and tags
// everything found. It is best effort: a failing prefix is logged and the
// sweep moves on, since missing tags must never block an invocation.
func (t *Tagger) TagAgentLogGroups(ctx context.Context, logs *zap.Logger) int {
	var total int
	for _, prefix := range mlopsLogGroupPrefixes {
		n, err := t.TagLogGroupsWithPrefix(ctx, prefix, nil)
		total += n
		if err != nil {
			logs.Warn("log group tagging sweep failed for prefix",
				zap.String("prefix", prefix), zap.Error(err))
		}
	}
	return total
}
