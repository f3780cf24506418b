package mlops_test

import (
	"strings"
	"testing"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/mlops"
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/mlops/mlopstest"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	sagemakertypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestCreateFeatureStoreGroup(t *testing.T) {
	t.Run("creates an online only group from described features", func(t *testing.T) {
		var created *sagemaker.CreateFeatureGroupInput
		sm := &fakeSageMaker{
			createFeature: func(in *sagemaker.CreateFeatureGroupInput) (*sagemaker.CreateFeatureGroupOutput, error) {
				created = in
				return &sagemaker.CreateFeatureGroupOutput{
					FeatureGroupArn: aws.String("arn:aws:sagemaker:us-east-1:123456789012:feature-group/churn-features"),
				}, nil
			},
		}
		h := mlops.NewHandlers(mlops.HandlersParams{Env: fastEnv(), SageMaker: sm})

		w, err := mlopstest.CallHandler(testCtx(t), h.CreateFeatureStoreGroup, map[string]string{
			"feature_group_name":   "churn-features",
			"feature_descriptions": "user_id as identifier, login_ts as the event time, score as float",
		})
		require.NoError(t, err)

		require.Equal(t, "churn-features", aws.ToString(created.FeatureGroupName))
		require.Equal(t, "user_id", aws.ToString(created.RecordIdentifierFeatureName))
		require.Equal(t, "login_ts", aws.ToString(created.EventTimeFeatureName))
		require.True(t, aws.ToBool(created.OnlineStoreConfig.EnableOnlineStore))
		require.Equal(t, "Feature group created by MLOps Agent", aws.ToString(created.Description))
		require.Equal(t, mlops.SageMakerTags(mlops.PurposeFeatureStore), created.Tags)
		require.Equal(t, []sagemakertypes.FeatureDefinition{
			{FeatureName: aws.String("user_id"), FeatureType: sagemakertypes.FeatureTypeString},
			{FeatureName: aws.String("login_ts"), FeatureType: sagemakertypes.FeatureTypeString},
			{FeatureName: aws.String("score"), FeatureType: sagemakertypes.FeatureTypeFractional},
		}, created.FeatureDefinitions)

		body := bodyMap(t, w)
		require.Equal(t, "Successfully created Feature Group: churn-features", body["message"])
		require.Equal(t, "arn:aws:sagemaker:us-east-1:123456789012:feature-group/churn-features", body["feature_group_arn"])
		require.Equal(t, "user_id", body["record_identifier"])
		require.Equal(t, "login_ts", body["event_time_feature"])
		require.Equal(t, 3, body["feature_count"])
	})

	t.Run("accepts the singular parameter spelling", func(t *testing.T) {
		var created *sagemaker.CreateFeatureGroupInput
		sm := &fakeSageMaker{
			createFeature: func(in *sagemaker.CreateFeatureGroupInput) (*sagemaker.CreateFeatureGroupOutput, error) {
				created = in
				return &sagemaker.CreateFeatureGroupOutput{}, nil
			},
		}
		h := mlops.NewHandlers(mlops.HandlersParams{Env: fastEnv(), SageMaker: sm})

		_, err := mlopstest.CallHandler(testCtx(t), h.CreateFeatureStoreGroup, map[string]string{
			"feature_group_name":  "churn-features",
			"feature_description": "player_id as string identifier",
		})
		require.NoError(t, err)
		require.Equal(t, "player_id", aws.ToString(created.RecordIdentifierFeatureName))
	})

	t.Run("plural spelling wins when both are sent", func(t *testing.T) {
		var created *sagemaker.CreateFeatureGroupInput
		sm := &fakeSageMaker{
			createFeature: func(in *sagemaker.CreateFeatureGroupInput) (*sagemaker.CreateFeatureGroupOutput, error) {
				created = in
				return &sagemaker.CreateFeatureGroupOutput{}, nil
			},
		}
		h := mlops.NewHandlers(mlops.HandlersParams{Env: fastEnv(), SageMaker: sm})

		_, err := mlopstest.CallHandler(testCtx(t), h.CreateFeatureStoreGroup, map[string]string{
			"feature_group_name":   "churn-features",
			"feature_descriptions": "plural_id as identifier",
			"feature_description":  "singular_id as identifier",
		})
		require.NoError(t, err)
		require.Equal(t, "plural_id", aws.ToString(created.RecordIdentifierFeatureName))
	})

	t.Run("no description yields the default schema", func(t *testing.T) {
		var created *sagemaker.CreateFeatureGroupInput
		sm := &fakeSageMaker{
			createFeature: func(in *sagemaker.CreateFeatureGroupInput) (*sagemaker.CreateFeatureGroupOutput, error) {
				created = in
				return &sagemaker.CreateFeatureGroupOutput{}, nil
			},
		}
		h := mlops.NewHandlers(mlops.HandlersParams{Env: fastEnv(), SageMaker: sm})

		w, err := mlopstest.CallHandler(testCtx(t), h.CreateFeatureStoreGroup, map[string]string{
			"feature_group_name": "churn-features",
		})
		require.NoError(t, err)

		require.Equal(t, "record_id", aws.ToString(created.RecordIdentifierFeatureName))
		require.Equal(t, "event_time", aws.ToString(created.EventTimeFeatureName))
		require.Equal(t, 2, bodyMap(t, w)["feature_count"])
	})

	t.Run("duplicate group", func(t *testing.T) {
		sm := &fakeSageMaker{
			createFeature: func(*sagemaker.CreateFeatureGroupInput) (*sagemaker.CreateFeatureGroupOutput, error) {
				return nil, &sagemakertypes.ResourceInUse{}
			},
		}
		h := mlops.NewHandlers(mlops.HandlersParams{Env: fastEnv(), SageMaker: sm})

		_, err := mlopstest.CallHandler(testCtx(t), h.CreateFeatureStoreGroup, map[string]string{
			"feature_group_name": "churn-features",
		})
		aerr := requireActionError(t, err, action.CodeConflict)
		require.Equal(t, `feature group "churn-features" already exists`, aerr.Message())
		require.Len(t, aerr.Suggestions(), 1)
		require.True(t, strings.HasPrefix(aerr.Suggestions()[0], "churn-features-"))
	})

	t.Run("missing name", func(t *testing.T) {
		h := mlops.NewHandlers(mlops.HandlersParams{Env: fastEnv()})

		_, err := mlopstest.CallHandler(testCtx(t), h.CreateFeatureStoreGroup, nil)
		aerr := requireActionError(t, err, action.CodeBadRequest)
		require.Equal(t, "missing required parameters: feature_group_name", aerr.Message())
	})

	t.Run("invalid name", func(t *testing.T) {
		h := mlops.NewHandlers(mlops.HandlersParams{Env: fastEnv()})

		_, err := mlopstest.CallHandler(testCtx(t), h.CreateFeatureStoreGroup, map[string]string{
			"feature_group_name": "churn features!",
		})
		aerr := requireActionError(t, err, action.CodeBadRequest)
		require.Equal(t, "invalid feature group name: must be 1-63 alphanumeric characters or hyphens", aerr.Message())
	})

	t.Run("creation failure", func(t *testing.T) {
		sm := &fakeSageMaker{
			createFeature: func(*sagemaker.CreateFeatureGroupInput) (*sagemaker.CreateFeatureGroupOutput, error) {
				return nil, errors.New("throttled")
			},
		}
		h := mlops.NewHandlers(mlops.HandlersParams{Env: fastEnv(), SageMaker: sm})

		_, err := mlopstest.CallHandler(testCtx(t), h.CreateFeatureStoreGroup, map[string]string{
			"feature_group_name": "churn-features",
		})
		require.ErrorContains(t, err, `failed to create feature group "churn-features"`)
		require.Equal(t, action.CodeUnknown, action.CodeOf(err))
	})
}
