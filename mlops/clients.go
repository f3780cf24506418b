package mlops

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/codeconnections"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalog"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// The client interfaces below capture only the AWS operations this runtime
// performs. Handlers depend on these instead of the SDK structs so tests can
// substitute hand-rolled fakes, and the compile-time checks keep them in
// sync with the real clients.

// SageMakerClient captures the SageMaker operations used across project,
// feature store, model registry, pipeline and MLflow handling.
type SageMakerClient interface {
	CreateProject(ctx context.Context, params *sagemaker.CreateProjectInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateProjectOutput, error)
	DescribeProject(ctx context.Context, params *sagemaker.DescribeProjectInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeProjectOutput, error)
	DeleteProject(ctx context.Context, params *sagemaker.DeleteProjectInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteProjectOutput, error)
	CreateFeatureGroup(ctx context.Context, params *sagemaker.CreateFeatureGroupInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateFeatureGroupOutput, error)
	CreateMlflowTrackingServer(ctx context.Context, params *sagemaker.CreateMlflowTrackingServerInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateMlflowTrackingServerOutput, error)
	DescribeMlflowTrackingServer(ctx context.Context, params *sagemaker.DescribeMlflowTrackingServerInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeMlflowTrackingServerOutput, error)
	ListModelPackages(ctx context.Context, params *sagemaker.ListModelPackagesInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListModelPackagesOutput, error)
	UpdateModelPackage(ctx context.Context, params *sagemaker.UpdateModelPackageInput, optFns ...func(*sagemaker.Options)) (*sagemaker.UpdateModelPackageOutput, error)
	CreateModelPackageGroup(ctx context.Context, params *sagemaker.CreateModelPackageGroupInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelPackageGroupOutput, error)
	DescribePipeline(ctx context.Context, params *sagemaker.DescribePipelineInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribePipelineOutput, error)
	UpdatePipeline(ctx context.Context, params *sagemaker.UpdatePipelineInput, optFns ...func(*sagemaker.Options)) (*sagemaker.UpdatePipelineOutput, error)
	StartPipelineExecution(ctx context.Context, params *sagemaker.StartPipelineExecutionInput, optFns ...func(*sagemaker.Options)) (*sagemaker.StartPipelineExecutionOutput, error)
	GetSagemakerServicecatalogPortfolioStatus(ctx context.Context, params *sagemaker.GetSagemakerServicecatalogPortfolioStatusInput, optFns ...func(*sagemaker.Options)) (*sagemaker.GetSagemakerServicecatalogPortfolioStatusOutput, error)
	EnableSagemakerServicecatalogPortfolio(ctx context.Context, params *sagemaker.EnableSagemakerServicecatalogPortfolioInput, optFns ...func(*sagemaker.Options)) (*sagemaker.EnableSagemakerServicecatalogPortfolioOutput, error)
}

var _ SageMakerClient = (*sagemaker.Client)(nil)

// S3Client captures the S3 operations bucket provisioning performs.
type S3Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketTagging(ctx context.Context, params *s3.PutBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ S3Client = (*s3.Client)(nil)

// ServiceCatalogClient captures the Service Catalog operations template
// discovery performs.
type ServiceCatalogClient interface {
	SearchProducts(ctx context.Context, params *servicecatalog.SearchProductsInput, optFns ...func(*servicecatalog.Options)) (*servicecatalog.SearchProductsOutput, error)
	ListProvisioningArtifacts(ctx context.Context, params *servicecatalog.ListProvisioningArtifactsInput, optFns ...func(*servicecatalog.Options)) (*servicecatalog.ListProvisioningArtifactsOutput, error)
}

var _ ServiceCatalogClient = (*servicecatalog.Client)(nil)

// CodeConnectionsClient creates connections to third-party Git providers.
type CodeConnectionsClient interface {
	CreateConnection(ctx context.Context, params *codeconnections.CreateConnectionInput, optFns ...func(*codeconnections.Options)) (*codeconnections.CreateConnectionOutput, error)
}

var _ CodeConnectionsClient = (*codeconnections.Client)(nil)

// CodePipelineClient captures the CodePipeline operations staging approval
// performs.
type CodePipelineClient interface {
	GetPipelineState(ctx context.Context, params *codepipeline.GetPipelineStateInput, optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineStateOutput, error)
	PutApprovalResult(ctx context.Context, params *codepipeline.PutApprovalResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutApprovalResultOutput, error)
}

var _ CodePipelineClient = (*codepipeline.Client)(nil)

// IAMClient probes candidate execution roles.
type IAMClient interface {
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
}

var _ IAMClient = (*iam.Client)(nil)

// STSClient resolves the calling account.
type STSClient interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

var _ STSClient = (*sts.Client)(nil)

// LogsClient captures the CloudWatch Logs operations the tagging sweep
// performs. DescribeLogGroupsAPIClient is embedded so the SDK paginator
// accepts any implementation.
type LogsClient interface {
	cloudwatchlogs.DescribeLogGroupsAPIClient
	TagResource(ctx context.Context, params *cloudwatchlogs.TagResourceInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.TagResourceOutput, error)
}

var _ LogsClient = (*cloudwatchlogs.Client)(nil)
