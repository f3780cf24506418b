package mlops_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/mlops"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/codeconnections"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalog"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fastEnv returns a base environment with polling and settling shrunk to
// test speed.
func fastEnv() mlops.BaseEnvironment {
	return mlops.BaseEnvironment{
		ServiceName:            "test",
		AWSRegion:              "us-east-1",
		GithubTokenSecretPath:  "token",
		GithubRetryStatusCodes: "429,500-599",
		GithubRetryMaxAttempts: 1,
		GithubRatePeriod:       time.Minute,
		PollInterval:           2 * time.Millisecond,
		PollTimeout:            100 * time.Millisecond,
	}
}

// testCtx returns a context carrying a test logger, the way the invocation
// middleware would.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	return mlops.WithLogger(t.Context(), zaptest.NewLogger(t))
}

// bodyMap returns the handler's rendered body for assertions.
func bodyMap(t *testing.T, w *action.ResponseWriter) map[string]any {
	t.Helper()
	body, ok := w.Body().(map[string]any)
	require.True(t, ok, "body is %T, not a map", w.Body())
	return body
}

// requireActionError asserts that err carries the given status code and
// returns it for further assertions.
func requireActionError(t *testing.T, err error, code action.Code) *action.Error {
	t.Helper()
	aerr, ok := action.AsError(err)
	require.True(t, ok, "error %v carries no status code", err)
	require.Equal(t, code, aerr.Code())
	return aerr
}

// The fakes below implement the narrow client interfaces with function
// fields per operation. An operation without a function panics, which
// surfaces calls the test did not expect.

type fakeSageMaker struct {
	createProject    func(*sagemaker.CreateProjectInput) (*sagemaker.CreateProjectOutput, error)
	describeProject  func(*sagemaker.DescribeProjectInput) (*sagemaker.DescribeProjectOutput, error)
	deleteProject    func(*sagemaker.DeleteProjectInput) (*sagemaker.DeleteProjectOutput, error)
	createFeature    func(*sagemaker.CreateFeatureGroupInput) (*sagemaker.CreateFeatureGroupOutput, error)
	createMlflow     func(*sagemaker.CreateMlflowTrackingServerInput) (*sagemaker.CreateMlflowTrackingServerOutput, error)
	describeMlflow   func(*sagemaker.DescribeMlflowTrackingServerInput) (*sagemaker.DescribeMlflowTrackingServerOutput, error)
	listPackages     func(*sagemaker.ListModelPackagesInput) (*sagemaker.ListModelPackagesOutput, error)
	updatePackage    func(*sagemaker.UpdateModelPackageInput) (*sagemaker.UpdateModelPackageOutput, error)
	createGroup      func(*sagemaker.CreateModelPackageGroupInput) (*sagemaker.CreateModelPackageGroupOutput, error)
	describePipeline func(*sagemaker.DescribePipelineInput) (*sagemaker.DescribePipelineOutput, error)
	updatePipeline   func(*sagemaker.UpdatePipelineInput) (*sagemaker.UpdatePipelineOutput, error)
	startExecution   func(*sagemaker.StartPipelineExecutionInput) (*sagemaker.StartPipelineExecutionOutput, error)
	portfolioStatus  func(*sagemaker.GetSagemakerServicecatalogPortfolioStatusInput) (*sagemaker.GetSagemakerServicecatalogPortfolioStatusOutput, error)
	enablePortfolio  func(*sagemaker.EnableSagemakerServicecatalogPortfolioInput) (*sagemaker.EnableSagemakerServicecatalogPortfolioOutput, error)
}

func (f *fakeSageMaker) CreateProject(_ context.Context, in *sagemaker.CreateProjectInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateProjectOutput, error) {
	return f.createProject(in)
}

func (f *fakeSageMaker) DescribeProject(_ context.Context, in *sagemaker.DescribeProjectInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeProjectOutput, error) {
	return f.describeProject(in)
}

func (f *fakeSageMaker) DeleteProject(_ context.Context, in *sagemaker.DeleteProjectInput, _ ...func(*sagemaker.Options)) (*sagemaker.DeleteProjectOutput, error) {
	return f.deleteProject(in)
}

func (f *fakeSageMaker) CreateFeatureGroup(_ context.Context, in *sagemaker.CreateFeatureGroupInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateFeatureGroupOutput, error) {
	return f.createFeature(in)
}

func (f *fakeSageMaker) CreateMlflowTrackingServer(_ context.Context, in *sagemaker.CreateMlflowTrackingServerInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateMlflowTrackingServerOutput, error) {
	return f.createMlflow(in)
}

func (f *fakeSageMaker) DescribeMlflowTrackingServer(_ context.Context, in *sagemaker.DescribeMlflowTrackingServerInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeMlflowTrackingServerOutput, error) {
	return f.describeMlflow(in)
}

func (f *fakeSageMaker) ListModelPackages(_ context.Context, in *sagemaker.ListModelPackagesInput, _ ...func(*sagemaker.Options)) (*sagemaker.ListModelPackagesOutput, error) {
	return f.listPackages(in)
}

func (f *fakeSageMaker) UpdateModelPackage(_ context.Context, in *sagemaker.UpdateModelPackageInput, _ ...func(*sagemaker.Options)) (*sagemaker.UpdateModelPackageOutput, error) {
	return f.updatePackage(in)
}

func (f *fakeSageMaker) CreateModelPackageGroup(_ context.Context, in *sagemaker.CreateModelPackageGroupInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateModelPackageGroupOutput, error) {
	return f.createGroup(in)
}

func (f *fakeSageMaker) DescribePipeline(_ context.Context, in *sagemaker.DescribePipelineInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribePipelineOutput, error) {
	return f.describePipeline(in)
}

func (f *fakeSageMaker) UpdatePipeline(_ context.Context, in *sagemaker.UpdatePipelineInput, _ ...func(*sagemaker.Options)) (*sagemaker.UpdatePipelineOutput, error) {
	return f.updatePipeline(in)
}

func (f *fakeSageMaker) StartPipelineExecution(_ context.Context, in *sagemaker.StartPipelineExecutionInput, _ ...func(*sagemaker.Options)) (*sagemaker.StartPipelineExecutionOutput, error) {
	return f.startExecution(in)
}

func (f *fakeSageMaker) GetSagemakerServicecatalogPortfolioStatus(_ context.Context, in *sagemaker.GetSagemakerServicecatalogPortfolioStatusInput, _ ...func(*sagemaker.Options)) (*sagemaker.GetSagemakerServicecatalogPortfolioStatusOutput, error) {
	return f.portfolioStatus(in)
}

func (f *fakeSageMaker) EnableSagemakerServicecatalogPortfolio(_ context.Context, in *sagemaker.EnableSagemakerServicecatalogPortfolioInput, _ ...func(*sagemaker.Options)) (*sagemaker.EnableSagemakerServicecatalogPortfolioOutput, error) {
	return f.enablePortfolio(in)
}

type fakeS3 struct {
	headBucket    func(*s3.HeadBucketInput) (*s3.HeadBucketOutput, error)
	createBucket  func(*s3.CreateBucketInput) (*s3.CreateBucketOutput, error)
	putTagging    func(*s3.PutBucketTaggingInput) (*s3.PutBucketTaggingOutput, error)
	putObject     func(*s3.PutObjectInput) (*s3.PutObjectOutput, error)
	deleteObject  func(*s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error)
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return f.headBucket(in)
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	return f.createBucket(in)
}

func (f *fakeS3) PutBucketTagging(_ context.Context, in *s3.PutBucketTaggingInput, _ ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error) {
	return f.putTagging(in)
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return f.putObject(in)
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return f.deleteObject(in)
}

// writableS3 is a fakeS3 whose bucket exists and accepts all writes.
func writableS3() *fakeS3 {
	return &fakeS3{
		headBucket:   func(*s3.HeadBucketInput) (*s3.HeadBucketOutput, error) { return &s3.HeadBucketOutput{}, nil },
		putObject:    func(*s3.PutObjectInput) (*s3.PutObjectOutput, error) { return &s3.PutObjectOutput{}, nil },
		deleteObject: func(*s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) { return &s3.DeleteObjectOutput{}, nil },
	}
}

type fakeServiceCatalog struct {
	searchProducts func(*servicecatalog.SearchProductsInput) (*servicecatalog.SearchProductsOutput, error)
	listArtifacts  func(*servicecatalog.ListProvisioningArtifactsInput) (*servicecatalog.ListProvisioningArtifactsOutput, error)
}

func (f *fakeServiceCatalog) SearchProducts(_ context.Context, in *servicecatalog.SearchProductsInput, _ ...func(*servicecatalog.Options)) (*servicecatalog.SearchProductsOutput, error) {
	return f.searchProducts(in)
}

func (f *fakeServiceCatalog) ListProvisioningArtifacts(_ context.Context, in *servicecatalog.ListProvisioningArtifactsInput, _ ...func(*servicecatalog.Options)) (*servicecatalog.ListProvisioningArtifactsOutput, error) {
	return f.listArtifacts(in)
}

type fakeConnections struct {
	createConnection func(*codeconnections.CreateConnectionInput) (*codeconnections.CreateConnectionOutput, error)
}

func (f *fakeConnections) CreateConnection(_ context.Context, in *codeconnections.CreateConnectionInput, _ ...func(*codeconnections.Options)) (*codeconnections.CreateConnectionOutput, error) {
	return f.createConnection(in)
}

type fakeCodePipeline struct {
	getState    func(*codepipeline.GetPipelineStateInput) (*codepipeline.GetPipelineStateOutput, error)
	putApproval func(*codepipeline.PutApprovalResultInput) (*codepipeline.PutApprovalResultOutput, error)
}

func (f *fakeCodePipeline) GetPipelineState(_ context.Context, in *codepipeline.GetPipelineStateInput, _ ...func(*codepipeline.Options)) (*codepipeline.GetPipelineStateOutput, error) {
	return f.getState(in)
}

func (f *fakeCodePipeline) PutApprovalResult(_ context.Context, in *codepipeline.PutApprovalResultInput, _ ...func(*codepipeline.Options)) (*codepipeline.PutApprovalResultOutput, error) {
	return f.putApproval(in)
}

type fakeIAM struct {
	getRole func(*iam.GetRoleInput) (*iam.GetRoleOutput, error)
}

func (f *fakeIAM) GetRole(_ context.Context, in *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	return f.getRole(in)
}

type fakeSTS struct {
	account string
	err     error
}

func (f *fakeSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: &f.account}, nil
}

type fakeLogs struct {
	describeGroups func(*cloudwatchlogs.DescribeLogGroupsInput) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	tagResource    func(*cloudwatchlogs.TagResourceInput) (*cloudwatchlogs.TagResourceOutput, error)
}

func (f *fakeLogs) DescribeLogGroups(_ context.Context, in *cloudwatchlogs.DescribeLogGroupsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
	return f.describeGroups(in)
}

func (f *fakeLogs) TagResource(_ context.Context, in *cloudwatchlogs.TagResourceInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.TagResourceOutput, error) {
	return f.tagResource(in)
}

type fakeSecrets struct {
	values map[string]string
}

func (f *fakeSecrets) GetSecretString(_ context.Context, secretID string) (string, error) {
	value, ok := f.values[secretID]
	if !ok {
		return "", errors.Newf("secret %q not found", secretID)
	}
	return value, nil
}

// roundTripFunc fakes an HTTP transport.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
