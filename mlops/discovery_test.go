package mlops_test

import (
	"testing"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/mlops"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	sagemakertypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalog"
	sctypes "github.com/aws/aws-sdk-go-v2/service/servicecatalog/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

// thirdPartyGitTemplate is the title AWS publishes the template under.
const thirdPartyGitTemplate = "MLOps template for model building, training, " +
	"and deployment with third-party Git repositories using CodePipeline"

func searchTerm(in *servicecatalog.SearchProductsInput) string {
	terms := in.Filters[string(sctypes.ProductViewFilterByFullTextSearch)]
	if len(terms) == 0 {
		return ""
	}
	return terms[0]
}

func TestEnsurePortfolio(t *testing.T) {
	t.Run("already enabled", func(t *testing.T) {
		sm := &fakeSageMaker{
			portfolioStatus: func(*sagemaker.GetSagemakerServicecatalogPortfolioStatusInput) (*sagemaker.GetSagemakerServicecatalogPortfolioStatusOutput, error) {
				return &sagemaker.GetSagemakerServicecatalogPortfolioStatusOutput{
					Status: sagemakertypes.SagemakerServicecatalogStatusEnabled,
				}, nil
			},
		}

		disc := mlops.NewDiscovery(&fakeServiceCatalog{}, sm, fastEnv())
		require.NoError(t, disc.EnsurePortfolio(testCtx(t)))
	})

	t.Run("enables when disabled", func(t *testing.T) {
		enabled := 0
		sm := &fakeSageMaker{
			portfolioStatus: func(*sagemaker.GetSagemakerServicecatalogPortfolioStatusInput) (*sagemaker.GetSagemakerServicecatalogPortfolioStatusOutput, error) {
				return &sagemaker.GetSagemakerServicecatalogPortfolioStatusOutput{
					Status: sagemakertypes.SagemakerServicecatalogStatusDisabled,
				}, nil
			},
			enablePortfolio: func(*sagemaker.EnableSagemakerServicecatalogPortfolioInput) (*sagemaker.EnableSagemakerServicecatalogPortfolioOutput, error) {
				enabled++
				return &sagemaker.EnableSagemakerServicecatalogPortfolioOutput{}, nil
			},
		}

		disc := mlops.NewDiscovery(&fakeServiceCatalog{}, sm, fastEnv())
		require.NoError(t, disc.EnsurePortfolio(testCtx(t)))
		require.Equal(t, 1, enabled)
	})

	t.Run("status check failure", func(t *testing.T) {
		sm := &fakeSageMaker{
			portfolioStatus: func(*sagemaker.GetSagemakerServicecatalogPortfolioStatusInput) (*sagemaker.GetSagemakerServicecatalogPortfolioStatusOutput, error) {
				return nil, errors.New("boom")
			},
		}

		disc := mlops.NewDiscovery(&fakeServiceCatalog{}, sm, fastEnv())
		err := disc.EnsurePortfolio(testCtx(t))
		require.ErrorContains(t, err, "failed to check service catalog portfolio status")
	})
}

func TestFindTemplateExactTitleWins(t *testing.T) {
	searches := 0
	catalog := &fakeServiceCatalog{
		searchProducts: func(in *servicecatalog.SearchProductsInput) (*servicecatalog.SearchProductsOutput, error) {
			searches++
			return &servicecatalog.SearchProductsOutput{ProductViewSummaries: []sctypes.ProductViewSummary{
				{ProductId: aws.String("prod-other"), Name: aws.String("Some unrelated product")},
				{ProductId: aws.String("prod-mlops"), Name: aws.String(searchTerm(in))},
			}}, nil
		},
		listArtifacts: func(in *servicecatalog.ListProvisioningArtifactsInput) (*servicecatalog.ListProvisioningArtifactsOutput, error) {
			require.Equal(t, "prod-mlops", aws.ToString(in.ProductId))
			return &servicecatalog.ListProvisioningArtifactsOutput{ProvisioningArtifactDetails: []sctypes.ProvisioningArtifactDetail{
				{Id: aws.String("pa-old"), Active: aws.Bool(false)},
				{Id: aws.String("pa-current"), Active: aws.Bool(true)},
			}}, nil
		},
	}

	disc := mlops.NewDiscovery(catalog, &fakeSageMaker{}, fastEnv())
	tmpl, err := disc.FindTemplate(testCtx(t))
	require.NoError(t, err)

	require.Equal(t, "prod-mlops", tmpl.ProductID)
	require.Equal(t, thirdPartyGitTemplate, tmpl.ProductName)
	require.Equal(t, "pa-current", tmpl.ArtifactID)
	require.Equal(t, 1, searches)
}

func TestFindTemplateFallsBackToBroaderTerms(t *testing.T) {
	catalog := &fakeServiceCatalog{
		searchProducts: func(in *servicecatalog.SearchProductsInput) (*servicecatalog.SearchProductsOutput, error) {
			if searchTerm(in) == thirdPartyGitTemplate {
				return &servicecatalog.SearchProductsOutput{}, nil
			}
			return &servicecatalog.SearchProductsOutput{ProductViewSummaries: []sctypes.ProductViewSummary{
				{ProductId: aws.String("prod-plain"), Name: aws.String("MLOps template without repositories")},
				{ProductId: aws.String("prod-git"), Name: aws.String("Custom MLOps template with GitHub integration")},
			}}, nil
		},
		listArtifacts: func(*servicecatalog.ListProvisioningArtifactsInput) (*servicecatalog.ListProvisioningArtifactsOutput, error) {
			// None marked active, the first one is taken.
			return &servicecatalog.ListProvisioningArtifactsOutput{ProvisioningArtifactDetails: []sctypes.ProvisioningArtifactDetail{
				{Id: aws.String("pa-1")},
				{Id: aws.String("pa-2")},
			}}, nil
		},
	}

	disc := mlops.NewDiscovery(catalog, &fakeSageMaker{}, fastEnv())
	tmpl, err := disc.FindTemplate(testCtx(t))
	require.NoError(t, err)

	require.Equal(t, "prod-git", tmpl.ProductID)
	require.Equal(t, "pa-1", tmpl.ArtifactID)
}

func TestFindTemplateNotFound(t *testing.T) {
	searches := 0
	catalog := &fakeServiceCatalog{
		searchProducts: func(*servicecatalog.SearchProductsInput) (*servicecatalog.SearchProductsOutput, error) {
			searches++
			return &servicecatalog.SearchProductsOutput{}, nil
		},
	}

	disc := mlops.NewDiscovery(catalog, &fakeSageMaker{}, fastEnv())
	_, err := disc.FindTemplate(testCtx(t))

	aerr := requireActionError(t, err, action.CodeNotFound)
	require.Contains(t, aerr.Message(), "MLOps project template not found in Service Catalog")
	// The canonical title plus every fallback term was tried.
	require.Equal(t, 4, searches)
}

func TestFindTemplateWithoutArtifacts(t *testing.T) {
	catalog := &fakeServiceCatalog{
		searchProducts: func(in *servicecatalog.SearchProductsInput) (*servicecatalog.SearchProductsOutput, error) {
			return &servicecatalog.SearchProductsOutput{ProductViewSummaries: []sctypes.ProductViewSummary{
				{ProductId: aws.String("prod-mlops"), Name: aws.String(searchTerm(in))},
			}}, nil
		},
		listArtifacts: func(*servicecatalog.ListProvisioningArtifactsInput) (*servicecatalog.ListProvisioningArtifactsOutput, error) {
			return &servicecatalog.ListProvisioningArtifactsOutput{}, nil
		},
	}

	disc := mlops.NewDiscovery(catalog, &fakeSageMaker{}, fastEnv())
	_, err := disc.FindTemplate(testCtx(t))
	require.ErrorContains(t, err, `product "prod-mlops" has no provisioning artifacts`)
}

func TestListTemplates(t *testing.T) {
	catalog := &fakeServiceCatalog{
		searchProducts: func(*servicecatalog.SearchProductsInput) (*servicecatalog.SearchProductsOutput, error) {
			// Every term reports the same products; the listing dedupes.
			return &servicecatalog.SearchProductsOutput{ProductViewSummaries: []sctypes.ProductViewSummary{
				{
					ProductId:        aws.String("prod-churn"),
					Name:             aws.String("SageMaker churn template"),
					Owner:            aws.String("Amazon SageMaker"),
					ShortDescription: aws.String("Churn prediction"),
				},
				{ProductId: aws.String("prod-git"), Name: aws.String("MLOps git template")},
				{ProductId: aws.String("prod-lake"), Name: aws.String("Data lake blueprint")},
			}}, nil
		},
	}

	disc := mlops.NewDiscovery(catalog, &fakeSageMaker{}, fastEnv())
	summaries, err := disc.ListTemplates(testCtx(t))
	require.NoError(t, err)

	require.Len(t, summaries, 2)
	require.Equal(t, mlops.TemplateSummary{
		ProductID:   "prod-churn",
		Name:        "SageMaker churn template",
		Owner:       "Amazon SageMaker",
		Description: "Churn prediction",
	}, summaries[0])
	require.Equal(t, "prod-git", summaries[1].ProductID)
}
