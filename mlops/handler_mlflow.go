package mlops

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	sagemakertypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// trackingServerSizes are the instance sizes SageMaker offers for MLflow
// tracking servers.
var trackingServerSizes = []string{"Small", "Medium", "Large"}

// mlflowVersions are the MLflow releases SageMaker can pin a tracking
// server to. Any other requested version falls back to the service default.
var mlflowVersions = []string{"3.0", "2.16", "2.13"}

// CreateMLflowServer provisions the artifact bucket and creates a managed
// MLflow tracking server on it. Creation takes SageMaker tens of minutes,
// so the response is an acceptance with the server in Creating state, not a
// completion.
func (h *Handlers) CreateMLflowServer(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error {
	if err := Require(params, "tracking_server_name"); err != nil {
		return err
	}

	serverName := params.Get("tracking_server_name")
	if err := ValidateTrackingServerName(serverName); err != nil {
		return err
	}

	size := params.GetDefault("tracking_server_size", "Small")
	if err := OneOf("tracking_server_size", size, trackingServerSizes...); err != nil {
		return err
	}

	artifactURI := params.Get("artifact_store_uri")
	if artifactURI == "" {
		account, err := h.accountID(ctx)
		if err != nil {
			return err
		}
		artifactURI = fmt.Sprintf("s3://mlflow-artifacts-%s/mlflow/", account)

		Log(ctx).Info("derived default artifact store", zap.String("artifact_store_uri", artifactURI))
	}

	bucket, err := h.provisioner.EnsureBucket(ctx, artifactURI, PurposeMLflowArtifacts)
	if err != nil {
		if body, ok := h.bucketConflictBody(ctx, err, artifactURI); ok {
			w.SetStatus(http.StatusConflict)
			w.SetBody(body)

			return nil
		}

		return err
	}
	if !bucket.WriteVerified {
		return badRequest(errors.Newf(
			"S3 write access to bucket %q failed; check the bucket policy and IAM permissions", bucket.Name))
	}

	roleARN := params.Get("role_arn")
	if roleARN != "" {
		if err := ValidateARN(roleARN); err != nil {
			return err
		}
	} else {
		roleARN = h.roles.FindExecutionRole(ctx)
	}
	if roleARN == "" {
		return badRequest(errors.New(
			"role ARN required for MLflow server creation; could not auto-detect a suitable IAM role"))
	}

	input := &sagemaker.CreateMlflowTrackingServerInput{
		TrackingServerName:         aws.String(serverName),
		ArtifactStoreUri:           aws.String(artifactURI),
		TrackingServerSize:         sagemakertypes.TrackingServerSize(size),
		RoleArn:                    aws.String(roleARN),
		AutomaticModelRegistration: aws.Bool(true),
		Tags:                       SageMakerTags(PurposeMLflowTracking),
	}

	version := "AWS Default"
	if requested := params.Get("mlflow_version"); slices.Contains(mlflowVersions, requested) {
		input.MlflowVersion = aws.String(requested)
		version = requested
	}

	out, err := h.sagemaker.CreateMlflowTrackingServer(ctx, input)
	if err != nil {
		if isResourceInUse(err) || isAlreadyExists(err) {
			return action.NewConflictError(
				errors.Newf("MLflow tracking server %q already exists", serverName),
				fmt.Sprintf("%s-%d", serverName, time.Now().Unix()))
		}

		return errors.Wrapf(err, "failed to create MLflow tracking server %q", serverName)
	}

	state := "existing"
	if bucket.Created {
		state = "created"
	}

	w.SetStatus(http.StatusAccepted)
	w.SetBody(map[string]any{
		"message":                   fmt.Sprintf("Successfully initiated MLflow Tracking Server creation: %s", serverName),
		"tracking_server_name":      serverName,
		"tracking_server_arn":       aws.ToString(out.TrackingServerArn),
		"artifact_store_uri":        artifactURI,
		"s3_bucket":                 bucket.Name,
		"s3_setup":                  fmt.Sprintf("S3 bucket ready (%s): s3://%s", state, bucket.Name),
		"tracking_server_size":      size,
		"role_arn":                  roleARN,
		"mlflow_version":            version,
		"status":                    "Creating",
		"estimated_completion_time": "20-30 minutes",
	})

	return nil
}

// bucketConflictBody turns a bucket name conflict into the detailed
// response the agent needs to retry, including the alternative names and a
// ready-made example URI. Non-conflict errors pass through untouched.
func (h *Handlers) bucketConflictBody(ctx context.Context, err error, artifactURI string) (map[string]any, bool) {
	aerr, ok := action.AsError(err)
	if !ok || aerr.Code() != action.CodeConflict || len(aerr.Suggestions()) == 0 {
		return nil, false
	}

	suggestions := aerr.Suggestions()
	body := map[string]any{
		"error":                  "S3 bucket setup failed",
		"message":                aerr.Message(),
		"artifact_store_uri":     artifactURI,
		"suggested_bucket_names": suggestions,
		"solution":               "Use one of the suggested bucket names or create the bucket manually first",
		"example_retry":          fmt.Sprintf("Try: s3://%s/mlflow-artifacts/", suggestions[0]),
	}
	if account, acctErr := h.accountID(ctx); acctErr == nil {
		body["account_id"] = account
	}

	return body, true
}
