package mlops

import (
	"context"
	"strings"
	"time"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	sagemakertypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalog"
	sctypes "github.com/aws/aws-sdk-go-v2/service/servicecatalog/types"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// templateSearchPhrase is the title AWS publishes the third-party Git
// project template under. Exact-name matches on it win over everything
// else; the product id behind it differs per account and is never
// hardcoded.
const templateSearchPhrase = "MLOps template for model building, training, " +
	"and deployment with third-party Git repositories using CodePipeline"

// templateFallbackTerms broaden the search when the canonical title finds
// nothing, which happens when AWS renames the template between launches.
var templateFallbackTerms = []string{"MLOps", "SageMaker", "model building"}

// Template identifies a provisionable Service Catalog product version.
type Template struct {
	ProductID   string
	ProductName string
	ArtifactID  string
}

// TemplateSummary is one row of the template listing.
type TemplateSummary struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
}

// Discovery finds SageMaker project templates in the account's Service
// Catalog and makes sure the portfolio that carries them is enabled.
type Discovery struct {
	catalog   ServiceCatalogClient
	sagemaker SageMakerClient
	settle    time.Duration
}

// NewDiscovery creates a Discovery.
func NewDiscovery(catalog ServiceCatalogClient, sm SageMakerClient, env Environment) *Discovery {
	return &Discovery{catalog: catalog, sagemaker: sm, settle: env.portfolioSettle()}
}

// EnsurePortfolio enables the SageMaker Service Catalog portfolio when it
// is not enabled yet. Project templates are invisible to search until then.
func (d *Discovery) EnsurePortfolio(ctx context.Context) error {
	status, err := d.sagemaker.GetSagemakerServicecatalogPortfolioStatus(ctx,
		&sagemaker.GetSagemakerServicecatalogPortfolioStatusInput{})
	if err != nil {
		return errors.Wrap(err, "failed to check service catalog portfolio status")
	}
	if status.Status == sagemakertypes.SagemakerServicecatalogStatusEnabled {
		return nil
	}

	Log(ctx).Info("enabling sagemaker service catalog portfolio")
	if _, err := d.sagemaker.EnableSagemakerServicecatalogPortfolio(ctx,
		&sagemaker.EnableSagemakerServicecatalogPortfolioInput{}); err != nil {
		return errors.Wrap(err, "failed to enable service catalog portfolio")
	}

	// Portfolio grants propagate asynchronously after enablement.
	return sleepContext(ctx, d.settle)
}

// FindTemplate locates the MLOps third-party Git project template and its
// provisioning artifact. An exact title match wins; otherwise fallback
// terms are searched and the first product that plausibly is the template
// is taken.
func (d *Discovery) FindTemplate(ctx context.Context) (Template, error) {
	product, err := d.findProduct(ctx)
	if err != nil {
		return Template{}, err
	}

	productID := aws.ToString(product.ProductId)
	artifactID, err := d.latestArtifact(ctx, productID)
	if err != nil {
		return Template{}, err
	}

	tmpl := Template{
		ProductID:   productID,
		ProductName: aws.ToString(product.Name),
		ArtifactID:  artifactID,
	}

	Log(ctx).Info("found mlops project template",
		zap.String("product_id", tmpl.ProductID),
		zap.String("product_name", tmpl.ProductName),
		zap.String("artifact_id", tmpl.ArtifactID))

	return tmpl, nil
}

func (d *Discovery) findProduct(ctx context.Context) (sctypes.ProductViewSummary, error) {
	products, err := d.searchProducts(ctx, templateSearchPhrase)
	if err != nil {
		return sctypes.ProductViewSummary{}, err
	}
	for _, p := range products {
		if aws.ToString(p.Name) == templateSearchPhrase {
			return p, nil
		}
	}

	for _, term := range templateFallbackTerms {
		found, err := d.searchProducts(ctx, term)
		if err != nil {
			return sctypes.ProductViewSummary{}, err
		}
		for _, p := range found {
			if looksLikeMLOpsTemplate(aws.ToString(p.Name)) {
				return p, nil
			}
		}
	}

	return sctypes.ProductViewSummary{}, action.NewError(action.CodeNotFound, errors.New(
		"MLOps project template not found in Service Catalog; "+
			"ensure SageMaker project templates are enabled for this account"))
}

// looksLikeMLOpsTemplate filters fallback search hits down to products that
// plausibly are the third-party Git template.
func looksLikeMLOpsTemplate(name string) bool {
	lower := strings.ToLower(name)
	if !strings.Contains(lower, "mlops") {
		return false
	}

	return strings.Contains(lower, "git") || strings.Contains(lower, "codepipeline")
}

// latestArtifact picks the artifact to provision: the first active one, or
// the first at all when none is marked active.
func (d *Discovery) latestArtifact(ctx context.Context, productID string) (string, error) {
	out, err := d.catalog.ListProvisioningArtifacts(ctx, &servicecatalog.ListProvisioningArtifactsInput{
		ProductId: aws.String(productID),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to list provisioning artifacts of product %q", productID)
	}

	artifacts := out.ProvisioningArtifactDetails
	if len(artifacts) == 0 {
		return "", errors.Newf("product %q has no provisioning artifacts", productID)
	}

	for _, a := range artifacts {
		if aws.ToBool(a.Active) {
			return aws.ToString(a.Id), nil
		}
	}

	return aws.ToString(artifacts[0].Id), nil
}

// ListTemplates searches all terms, dedupes by product id and keeps
// anything that names MLOps or SageMaker. Meant for the agent to show the
// user what could be provisioned.
func (d *Discovery) ListTemplates(ctx context.Context) ([]TemplateSummary, error) {
	var all []sctypes.ProductViewSummary
	for _, term := range append([]string{templateSearchPhrase}, templateFallbackTerms...) {
		found, err := d.searchProducts(ctx, term)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}

	all = lo.UniqBy(all, func(p sctypes.ProductViewSummary) string {
		return aws.ToString(p.ProductId)
	})

	summaries := make([]TemplateSummary, 0, len(all))
	for _, p := range all {
		lower := strings.ToLower(aws.ToString(p.Name))
		if !strings.Contains(lower, "mlops") && !strings.Contains(lower, "sagemaker") {
			continue
		}

		summaries = append(summaries, TemplateSummary{
			ProductID:   aws.ToString(p.ProductId),
			Name:        aws.ToString(p.Name),
			Owner:       aws.ToString(p.Owner),
			Description: aws.ToString(p.ShortDescription),
		})
	}

	return summaries, nil
}

func (d *Discovery) searchProducts(ctx context.Context, term string) ([]sctypes.ProductViewSummary, error) {
	out, err := d.catalog.SearchProducts(ctx, &servicecatalog.SearchProductsInput{
		Filters: map[string][]string{
			string(sctypes.ProductViewFilterByFullTextSearch): {term},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search service catalog for %q", term)
	}

	return out.ProductViewSummaries, nil
}
