package mlops

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	cptypes "github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	sagemakertypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// buildPipelineRequired lists the parameters BuildCICDPipeline cannot run
// without, in the order they are reported when absent.
var buildPipelineRequired = []string{
	"project_name",
	"model_build_code_repository_full_name",
	"code_connection_arn",
	"feature_group_name",
	"bucket_name",
	"mlflow_tracking_server_arn",
	"pipeline_name",
}

// BuildCICDPipeline wires an existing SageMaker project's model-build
// pipeline to the caller's feature group, artifact bucket and MLflow
// tracking server, then starts an execution. The model-build repository is
// staged in a scratch workspace first, which validates that the seed code
// is reachable and laid out the way the project's build expects before the
// pipeline definition is touched.
func (h *Handlers) BuildCICDPipeline(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error {
	if missing := Missing(params, buildPipelineRequired...); len(missing) > 0 {
		w.SetStatus(http.StatusBadRequest)
		w.SetBody(map[string]any{
			"error":              fmt.Sprintf("Missing required parameters: %s", strings.Join(missing, ", ")),
			"missing_parameters": missing,
		})

		return nil
	}

	projectName := params.Get("project_name")
	buildRepo := params.Get("model_build_code_repository_full_name")
	connectionARN := params.Get("code_connection_arn")
	featureGroup := params.Get("feature_group_name")
	bucketName := params.Get("bucket_name")
	mlflowARN := params.Get("mlflow_tracking_server_arn")
	pipelineName := params.Get("pipeline_name")

	for _, check := range []error{
		ValidateProjectName(projectName),
		ValidateGitHubRepo(buildRepo),
		ValidateARN(connectionARN),
		ValidateFeatureGroupName(featureGroup),
		ValidateBucketName(bucketName),
		ValidateARN(mlflowARN),
		ValidatePipelineName(pipelineName),
	} {
		if check != nil {
			return check
		}
	}

	region := params.Get("region")
	if region == "" {
		region = h.env.awsRegion()
	}
	bucketPrefix := params.GetDefault("bucket_prefix", "player-churn/xgboost")
	experimentName := params.GetDefault("experiment_name", "player-churn-model-build-pipeline")
	trainInstanceType := params.GetDefault("train_instance_type", "ml.m5.xlarge")
	approvalStatus := params.GetDefault("model_approval_status", "PendingManualApproval")

	threshold := params.GetDefault("test_score_threshold", "0.75")
	if _, err := strconv.ParseFloat(threshold, 64); err != nil {
		return badRequest(errors.Newf("invalid test_score_threshold: %q (must be numeric)", threshold))
	}

	project, err := h.sagemaker.DescribeProject(ctx, &sagemaker.DescribeProjectInput{
		ProjectName: aws.String(projectName),
	})
	if err != nil {
		if isResourceNotFound(err) {
			return action.NewError(action.CodeNotFound, errors.Newf("project %q not found", projectName))
		}

		return errors.Wrapf(err, "failed to describe project %q", projectName)
	}

	projectID := aws.ToString(project.ProjectId)
	projectFolder := fmt.Sprintf("sagemaker-%s-modelbuild", projectID)

	bucket, err := h.provisioner.EnsureBucket(ctx, "s3://"+bucketName+"/"+bucketPrefix, PurposeAutomation)
	if err != nil {
		return err
	}
	if !bucket.WriteVerified {
		Log(ctx).Warn("artifact bucket write probe failed; the pipeline may not be able to stage artifacts",
			zap.String("bucket", bucket.Name))
	}

	seedSource, err := h.prepareWorkspace(ctx, buildRepo, projectName, projectFolder)
	if err != nil {
		return err
	}

	pipeline, err := h.sagemaker.DescribePipeline(ctx, &sagemaker.DescribePipelineInput{
		PipelineName: aws.String(pipelineName),
	})
	if err != nil {
		if isResourceNotFound(err) {
			return action.NewError(action.CodeNotFound,
				errors.Newf("pipeline %q not found; it is provisioned by the MLOps project template", pipelineName))
		}

		return errors.Wrapf(err, "failed to describe pipeline %q", pipelineName)
	}

	var definition map[string]any
	if err := json.Unmarshal([]byte(aws.ToString(pipeline.PipelineDefinition)), &definition); err != nil {
		return errors.Wrapf(err, "failed to parse definition of pipeline %q", pipelineName)
	}

	values := map[string]string{
		"region":                     region,
		"feature_group_name":         featureGroup,
		"bucket_name":                bucketName,
		"bucket_prefix":              bucketPrefix,
		"experiment_name":            experimentName,
		"train_instance_type":        trainInstanceType,
		"test_score_threshold":       threshold,
		"model_package_group_name":   fmt.Sprintf("%s-%s", projectName, projectID),
		"model_approval_status":      approvalStatus,
		"mlflow_tracking_server_arn": mlflowARN,
	}
	mergePipelineParameters(definition, values)

	merged, err := json.Marshal(definition)
	if err != nil {
		return errors.Wrapf(err, "failed to render definition of pipeline %q", pipelineName)
	}

	if _, err := h.sagemaker.UpdatePipeline(ctx, &sagemaker.UpdatePipelineInput{
		PipelineName:       aws.String(pipelineName),
		PipelineDefinition: aws.String(string(merged)),
		RoleArn:            pipeline.RoleArn,
	}); err != nil {
		return errors.Wrapf(err, "failed to update pipeline %q", pipelineName)
	}

	execution, err := h.sagemaker.StartPipelineExecution(ctx, &sagemaker.StartPipelineExecutionInput{
		PipelineName: aws.String(pipelineName),
		PipelineParameters: lo.Map(slices.Sorted(maps.Keys(values)), func(name string, _ int) sagemakertypes.Parameter {
			return sagemakertypes.Parameter{Name: aws.String(name), Value: aws.String(values[name])}
		}),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to start execution of pipeline %q", pipelineName)
	}

	w.SetBody(map[string]any{
		"message":                "CI/CD pipeline build completed successfully",
		"pipeline_execution_arn": aws.ToString(execution.PipelineExecutionArn),
		"pipeline_name":          pipelineName,
		"project_name":           projectName,
		"project_id":             projectID,
		"parameters":             values,
		"seed_source":            seedSource,
	})

	return nil
}

// prepareWorkspace stages the model-build repository under a scratch
// directory shaped like the project's CodeBuild checkout: repository
// content (downloaded, or generated seed files when the repository is
// empty), the template buildspec set aside, the example pipeline folder
// renamed, and the build requirements pinned. The scratch tree is discarded
// on return; staging exists to catch unreachable or malformed seed code
// before the pipeline definition is touched.
func (h *Handlers) prepareWorkspace(ctx context.Context, repo, projectName, projectFolder string) (string, error) {
	scratch, err := os.MkdirTemp("", "mlops-build-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create scratch workspace")
	}
	defer os.RemoveAll(scratch)

	target := filepath.Join(scratch, projectName, projectFolder)
	if err := os.MkdirAll(target, 0o750); err != nil {
		return "", errors.Wrap(err, "failed to lay out scratch workspace")
	}

	hasContent, err := h.github.CheckRepoContents(ctx, repo)
	if err != nil {
		Log(ctx).Warn("could not check repository contents; treating repository as empty",
			zap.String("repository", repo), zap.Error(err))
	}

	seedSource := "generated-seed-files"
	if hasContent {
		seedSource = "github-download"

		data, err := h.github.DownloadArchive(ctx, repo, defaultBranch)
		if err != nil {
			return "", action.NewError(action.CodeInternalServerError,
				errors.Wrap(err, "failed to download repository from GitHub"))
		}

		if err := ExtractZip(data, scratch); err != nil {
			return "", errors.Wrapf(err, "failed to extract archive of %q", repo)
		}

		source, err := extractedRepoDir(scratch, repo)
		if err != nil {
			return "", err
		}

		if err := os.CopyFS(target, os.DirFS(source)); err != nil {
			return "", errors.Wrapf(err, "failed to stage repository %q", repo)
		}
	} else {
		for name, content := range SeedFiles(projectName) {
			full := filepath.Join(target, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
				return "", errors.Wrapf(err, "failed to create seed directory for %q", name)
			}
			if err := os.WriteFile(full, []byte(content), 0o640); err != nil {
				return "", errors.Wrapf(err, "failed to write seed file %q", name)
			}
		}
	}

	// The template ships an Abalone example and its own buildspec; the
	// build expects them out of the way.
	buildspec := filepath.Join(target, "codebuild-buildspec.yml")
	if _, err := os.Stat(buildspec); err == nil {
		if err := os.Rename(buildspec, filepath.Join(target, "codebuild-buildspec-original.yml")); err != nil {
			return "", errors.Wrap(err, "failed to set aside template buildspec")
		}
	}
	abalone := filepath.Join(target, "pipelines", "abalone")
	if _, err := os.Stat(abalone); err == nil {
		if err := os.Rename(abalone, filepath.Join(target, "pipelines", "playerchurn")); err != nil {
			return "", errors.Wrap(err, "failed to rename example pipeline folder")
		}
	}

	if err := os.WriteFile(filepath.Join(target, "requirements.txt"), []byte(modelBuildRequirements), 0o640); err != nil {
		return "", errors.Wrap(err, "failed to pin build requirements")
	}
	if err := os.WriteFile(filepath.Join(target, "config.yaml"), []byte("# SageMaker configuration\n"), 0o640); err != nil {
		return "", errors.Wrap(err, "failed to write build configuration")
	}

	Log(ctx).Info("model-build workspace staged",
		zap.String("repository", repo),
		zap.String("seed_source", seedSource))

	return seedSource, nil
}

// extractedRepoDir locates the directory a GitHub archive unpacked into;
// archives expand to {repo}-{branch}.
func extractedRepoDir(scratch, repo string) (string, error) {
	repoName := repo
	if i := strings.LastIndex(repo, "/"); i >= 0 {
		repoName = repo[i+1:]
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		return "", errors.Wrap(err, "failed to list scratch workspace")
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), repoName) {
			return filepath.Join(scratch, entry.Name()), nil
		}
	}

	return "", errors.Newf("archive of %q did not contain a repository folder", repo)
}

// mergePipelineParameters folds values into the definition's Parameters
// block: parameters the definition already declares get their DefaultValue
// replaced, the rest are appended as String parameters. Merge order is
// sorted by name so the definition comes out deterministic.
func mergePipelineParameters(definition map[string]any, values map[string]string) {
	params, _ := definition["Parameters"].([]any)

	declared := map[string]map[string]any{}
	for _, entry := range params {
		if param, ok := entry.(map[string]any); ok {
			if name, _ := param["Name"].(string); name != "" {
				declared[name] = param
			}
		}
	}

	for _, name := range slices.Sorted(maps.Keys(values)) {
		if param, ok := declared[name]; ok {
			param["DefaultValue"] = values[name]
			continue
		}
		params = append(params, map[string]any{
			"Name":         name,
			"Type":         "String",
			"DefaultValue": values[name],
		})
	}

	definition["Parameters"] = params
}

// stagingActions are the operations ManageStagingApproval supports.
var stagingActions = []string{"approve", "list"}

// pendingApproval is a manual gate waiting in a deploy pipeline.
type pendingApproval struct {
	Stage  string
	Action string
	Token  string
}

// ManageStagingApproval lists or releases the manual approval gate on a
// project's model-deploy pipeline. The gate is found by inspecting the live
// pipeline state; stage and action names are never assumed.
func (h *Handlers) ManageStagingApproval(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error {
	if err := Require(params, "project_name"); err != nil {
		return err
	}

	projectName := params.Get("project_name")
	if err := ValidateProjectName(projectName); err != nil {
		return err
	}

	act := params.GetDefault("action", "approve")
	if err := OneOf("action", act, stagingActions...); err != nil {
		return err
	}

	project, err := h.sagemaker.DescribeProject(ctx, &sagemaker.DescribeProjectInput{
		ProjectName: aws.String(projectName),
	})
	if err != nil {
		if isResourceNotFound(err) {
			return action.NewError(action.CodeNotFound, errors.Newf("project %q not found", projectName))
		}

		return errors.Wrapf(err, "failed to describe project %q", projectName)
	}

	deployPipeline := fmt.Sprintf("sagemaker-%s-%s-modeldeploy", projectName, aws.ToString(project.ProjectId))

	state, err := h.codepipeline.GetPipelineState(ctx, &codepipeline.GetPipelineStateInput{
		Name: aws.String(deployPipeline),
	})
	if err != nil {
		var notFound *cptypes.PipelineNotFoundException
		if errors.As(err, &notFound) {
			return action.NewError(action.CodeNotFound,
				errors.Newf("deploy pipeline %q not found; the project may still be provisioning", deployPipeline))
		}

		return errors.Wrapf(err, "failed to get state of pipeline %q", deployPipeline)
	}

	pending := pendingApprovals(state)

	if act == "list" {
		w.SetBody(map[string]any{
			"message":              fmt.Sprintf("Pipeline status for %s", projectName),
			"deploy_pipeline_name": deployPipeline,
			"pending_approvals": lo.Map(pending, func(p pendingApproval, _ int) map[string]any {
				return map[string]any{
					"stage_name":  p.Stage,
					"action_name": p.Action,
					"status":      string(cptypes.ActionExecutionStatusInProgress),
				}
			}),
			"summary": map[string]any{"pending_count": len(pending)},
		})

		return nil
	}

	if len(pending) == 0 {
		return action.NewError(action.CodeNotFound,
			errors.Newf("no pending approvals found in pipeline %q", deployPipeline))
	}

	gate := pending[0]
	if _, err := h.codepipeline.PutApprovalResult(ctx, &codepipeline.PutApprovalResultInput{
		PipelineName: aws.String(deployPipeline),
		StageName:    aws.String(gate.Stage),
		ActionName:   aws.String(gate.Action),
		Token:        aws.String(gate.Token),
		Result: &cptypes.ApprovalResult{
			Status:  cptypes.ApprovalStatusApproved,
			Summary: aws.String("Approved by MLOps Agent"),
		},
	}); err != nil {
		return errors.Wrapf(err, "failed to approve %s/%s in pipeline %q", gate.Stage, gate.Action, deployPipeline)
	}

	w.SetBody(map[string]any{
		"message":              fmt.Sprintf("Successfully approved %s/%s", gate.Stage, gate.Action),
		"project_name":         projectName,
		"deploy_pipeline_name": deployPipeline,
		"stage_name":           gate.Stage,
		"action_name":          gate.Action,
		"status":               string(cptypes.ApprovalStatusApproved),
		"next_steps": []string{
			"Production deployment should now proceed automatically",
			"Monitor CodePipeline console for continued progress",
			"Production endpoint will be created shortly",
		},
	})

	return nil
}

// pendingApprovals walks live pipeline state for waiting manual gates. The
// state API does not expose action categories, but only manual-approval
// actions carry an approval token, so an in-progress execution holding a
// token is exactly a gate waiting on a decision.
func pendingApprovals(state *codepipeline.GetPipelineStateOutput) []pendingApproval {
	var pending []pendingApproval
	for _, stage := range state.StageStates {
		for _, act := range stage.ActionStates {
			latest := act.LatestExecution
			if latest == nil || latest.Status != cptypes.ActionExecutionStatusInProgress || latest.Token == nil {
				continue
			}
			pending = append(pending, pendingApproval{
				Stage:  aws.ToString(stage.StageName),
				Action: aws.ToString(act.ActionName),
				Token:  aws.ToString(latest.Token),
			})
		}
	}

	return pending
}
