package mlops

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	sagemakertypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"
	"go.uber.org/fx"
)

// Handlers implements every agent action this runtime serves. All AWS
// access goes through the injected narrow interfaces so tests can run the
// full handler logic against hand-rolled fakes.
type Handlers struct {
	env          Environment
	sagemaker    SageMakerClient
	codepipeline CodePipelineClient
	connections  CodeConnectionsClient
	sts          STSClient
	provisioner  *Provisioner
	roles        *RoleFinder
	discovery    *Discovery
	github       *GitHub
}

// HandlersParams declares the dependencies of [NewHandlers].
type HandlersParams struct {
	fx.In

	Env          Environment
	SageMaker    SageMakerClient
	CodePipeline CodePipelineClient
	Connections  CodeConnectionsClient
	STS          STSClient
	Provisioner  *Provisioner
	Roles        *RoleFinder
	Discovery    *Discovery
	GitHub       *GitHub
}

// NewHandlers creates the handler set.
func NewHandlers(p HandlersParams) *Handlers {
	return &Handlers{
		env:          p.Env,
		sagemaker:    p.SageMaker,
		codepipeline: p.CodePipeline,
		connections:  p.Connections,
		sts:          p.STS,
		provisioner:  p.Provisioner,
		roles:        p.Roles,
		discovery:    p.Discovery,
		github:       p.GitHub,
	}
}

// accountID resolves the calling AWS account.
func (h *Handlers) accountID(ctx context.Context) (string, error) {
	ident, err := h.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve caller identity")
	}

	return aws.ToString(ident.Account), nil
}

// isAlreadyExists spots duplicate-name failures from services that report
// them with service-specific types but consistent wording.
func isAlreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// isResourceInUse reports whether err is SageMaker's duplicate-resource
// error.
func isResourceInUse(err error) bool {
	var inUse *sagemakertypes.ResourceInUse
	return errors.As(err, &inUse)
}

// isResourceNotFound reports whether err is SageMaker's missing-resource
// error.
func isResourceNotFound(err error) bool {
	var notFound *sagemakertypes.ResourceNotFound
	return errors.As(err, &notFound)
}

// isAccessDenied reports whether err is an authorization failure. The SDK
// surfaces these as generic API errors whose code varies by service.
func isAccessDenied(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.ErrorCode() {
	case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation":
		return true
	}

	return false
}
