package mlops

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	sagemakertypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// defaultBranch is the branch the project template wires both seed
// repositories to.
const defaultBranch = "main"

// CreateMLOpsProject provisions a SageMaker project from the Service
// Catalog MLOps template, wiring the model-build and model-deploy GitHub
// repositories through the given code connection, and waits for the
// provisioning to complete. Provisioning that outlives the poll budget is
// reported as accepted, not failed; SageMaker keeps working on it.
func (h *Handlers) CreateMLOpsProject(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error {
	err := Require(params,
		"project_name", "github_repo_build", "github_repo_deploy", "connection_arn", "github_username")
	if err != nil {
		return err
	}

	projectName := params.Get("project_name")
	username := params.Get("github_username")
	connectionARN := params.Get("connection_arn")

	if err := ValidateProjectName(projectName); err != nil {
		return err
	}
	if err := ValidateGitHubUsername(username); err != nil {
		return err
	}
	if err := ValidateARN(connectionARN); err != nil {
		return err
	}

	buildRepo := repoFullName(username, params.Get("github_repo_build"))
	deployRepo := repoFullName(username, params.Get("github_repo_deploy"))
	for _, repo := range []string{buildRepo, deployRepo} {
		if err := ValidateGitHubRepo(repo); err != nil {
			return err
		}
	}

	if err := h.discovery.EnsurePortfolio(ctx); err != nil {
		return err
	}

	tmpl, err := h.discovery.FindTemplate(ctx)
	if err != nil {
		return err
	}

	created, err := h.sagemaker.CreateProject(ctx, &sagemaker.CreateProjectInput{
		ProjectName:        aws.String(projectName),
		ProjectDescription: aws.String("MLOps project for model building and deployment"),
		ServiceCatalogProvisioningDetails: &sagemakertypes.ServiceCatalogProvisioningDetails{
			ProductId:              aws.String(tmpl.ProductID),
			ProvisioningArtifactId: aws.String(tmpl.ArtifactID),
			ProvisioningParameters: []sagemakertypes.ProvisioningParameter{
				{Key: aws.String("ModelBuildCodeRepositoryBranch"), Value: aws.String(defaultBranch)},
				{Key: aws.String("ModelBuildCodeRepositoryFullname"), Value: aws.String(buildRepo)},
				{Key: aws.String("ModelDeployCodeRepositoryBranch"), Value: aws.String(defaultBranch)},
				{Key: aws.String("ModelDeployCodeRepositoryFullname"), Value: aws.String(deployRepo)},
				{Key: aws.String("CodeConnectionArn"), Value: aws.String(connectionARN)},
			},
		},
		Tags: append(SageMakerTags(PurposeAutomation),
			sagemakertypes.Tag{Key: aws.String("Environment"), Value: aws.String("Development")},
			sagemakertypes.Tag{Key: aws.String("GitHubIntegration"), Value: aws.String("Enabled")},
		),
	})
	if err != nil {
		switch {
		case isAccessDenied(err):
			return action.NewError(action.CodeForbidden,
				errors.New("insufficient permissions to create SageMaker projects"))
		case isResourceInUse(err) || isAlreadyExists(err):
			return action.NewConflictError(
				errors.Newf("project %q already exists", projectName),
				fmt.Sprintf("%s-v2", projectName),
				fmt.Sprintf("%s-%d", projectName, time.Now().Unix()))
		}

		return errors.Wrapf(err, "failed to create project %q", projectName)
	}

	projectID := aws.ToString(created.ProjectId)
	projectARN := aws.ToString(created.ProjectArn)

	Log(ctx).Info("project creation initiated, awaiting completion",
		zap.String("project_name", projectName),
		zap.String("project_id", projectID))

	start := time.Now()
	result, err := Await(ctx, AwaitConfig{
		Interval: h.env.pollInterval(),
		Timeout:  h.env.pollTimeout(),
	}, func(ctx context.Context) (PollState, string, error) {
		out, err := h.sagemaker.DescribeProject(ctx, &sagemaker.DescribeProjectInput{
			ProjectName: aws.String(projectName),
		})
		if err != nil {
			return PollPending, "", errors.Wrap(err, "failed to describe project")
		}

		switch out.ProjectStatus {
		case sagemakertypes.ProjectStatusCreateCompleted:
			return PollSucceeded, string(out.ProjectStatus), nil
		case sagemakertypes.ProjectStatusCreateFailed:
			return PollFailed, string(out.ProjectStatus), nil
		}

		return PollPending, string(out.ProjectStatus), nil
	})
	if err != nil {
		return err
	}

	switch {
	case result.TimedOut:
		status := "Unknown"
		if out, derr := h.sagemaker.DescribeProject(ctx, &sagemaker.DescribeProjectInput{
			ProjectName: aws.String(projectName),
		}); derr == nil {
			status = string(out.ProjectStatus)
		}

		w.SetStatus(http.StatusAccepted)
		w.SetBody(map[string]any{
			"message":      fmt.Sprintf("MLOps project creation in progress: %s", projectName),
			"project_name": projectName,
			"project_id":   projectID,
			"project_arn":  projectARN,
			"status":       status,
			"warning":      fmt.Sprintf("Creation did not complete within %s", h.env.pollTimeout()),
			"next_steps": []string{
				"Check SageMaker Studio for project status",
				"Project creation may still be in progress",
				"CI/CD pipelines will be created once project completes",
			},
		})

		return nil

	case result.State == PollFailed:
		return action.NewError(action.CodeInternalServerError,
			errors.Newf("project %q creation failed with status: %s", projectName, result.Reason))
	}

	w.SetBody(map[string]any{
		"message":                  fmt.Sprintf("Successfully created MLOps project: %s", projectName),
		"project_name":             projectName,
		"project_id":               projectID,
		"project_arn":              projectARN,
		"model_package_group_name": fmt.Sprintf("%s-%s", projectName, projectID),
		"status":                   result.Reason,
		"github_integration": map[string]string{
			"build_repo":     buildRepo,
			"deploy_repo":    deployRepo,
			"connection_arn": connectionARN,
		},
		"template_info": map[string]string{
			"product_id":               tmpl.ProductID,
			"provisioning_artifact_id": tmpl.ArtifactID,
		},
		"creation_time": fmt.Sprintf("%d seconds", int(time.Since(start).Seconds())),
		"next_steps": []string{
			"MLOps project created successfully",
			"Build pipeline will start automatically",
			"Models will be registered to the model package group after training",
			"Use manage-model-approval to approve models when ready",
			fmt.Sprintf("Build repository: https://github.com/%s", buildRepo),
			fmt.Sprintf("Deploy repository: https://github.com/%s", deployRepo),
		},
	})

	return nil
}

// lifecycleActions are the operations ManageProjectLifecycle supports.
var lifecycleActions = []string{"describe", "delete", "check_mlflow_status"}

// ManageProjectLifecycle inspects or tears down an existing project, and
// doubles as the status probe for MLflow tracking servers created alongside
// one.
func (h *Handlers) ManageProjectLifecycle(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error {
	if err := Require(params, "project_name", "action"); err != nil {
		return err
	}

	projectName := params.Get("project_name")
	if err := ValidateProjectName(projectName); err != nil {
		return err
	}

	act := params.Get("action")
	if err := OneOf("action", act, lifecycleActions...); err != nil {
		return err
	}

	switch act {
	case "describe":
		return h.describeProject(ctx, w, projectName)
	case "delete":
		return h.deleteProject(ctx, w, projectName)
	default:
		return h.checkMLflowStatus(ctx, w, params)
	}
}

func (h *Handlers) describeProject(ctx context.Context, w *action.ResponseWriter, projectName string) error {
	out, err := h.sagemaker.DescribeProject(ctx, &sagemaker.DescribeProjectInput{
		ProjectName: aws.String(projectName),
	})
	if err != nil {
		if isResourceNotFound(err) {
			return action.NewError(action.CodeNotFound, errors.Newf("project %q not found", projectName))
		}

		return errors.Wrapf(err, "failed to describe project %q", projectName)
	}

	body := map[string]any{
		"project_name":   aws.ToString(out.ProjectName),
		"project_id":     aws.ToString(out.ProjectId),
		"project_arn":    aws.ToString(out.ProjectArn),
		"project_status": string(out.ProjectStatus),
	}
	if out.CreationTime != nil {
		body["creation_time"] = out.CreationTime.Format(time.RFC3339)
	}

	w.SetBody(body)

	return nil
}

func (h *Handlers) deleteProject(ctx context.Context, w *action.ResponseWriter, projectName string) error {
	if !h.env.allowProjectDelete() {
		return action.NewError(action.CodeForbidden,
			errors.Newf("project deletion is disabled; delete project %q from the AWS Console instead", projectName))
	}

	if _, err := h.sagemaker.DeleteProject(ctx, &sagemaker.DeleteProjectInput{
		ProjectName: aws.String(projectName),
	}); err != nil {
		if isResourceNotFound(err) {
			return action.NewError(action.CodeNotFound, errors.Newf("project %q not found", projectName))
		}

		return errors.Wrapf(err, "failed to delete project %q", projectName)
	}

	w.SetBody(map[string]any{
		"message":      fmt.Sprintf("Successfully initiated deletion of project: %s", projectName),
		"project_name": projectName,
		"status":       "DeleteInProgress",
	})

	return nil
}

// trackingServerReadyStates are the statuses in which an MLflow tracking
// server accepts traffic.
var trackingServerReadyStates = []sagemakertypes.TrackingServerStatus{
	sagemakertypes.TrackingServerStatusCreated,
	sagemakertypes.TrackingServerStatusStarted,
}

func (h *Handlers) checkMLflowStatus(ctx context.Context, w *action.ResponseWriter, params action.Params) error {
	if err := Require(params, "tracking_server_name"); err != nil {
		return err
	}

	serverName := params.Get("tracking_server_name")
	if err := ValidateTrackingServerName(serverName); err != nil {
		return err
	}

	out, err := h.sagemaker.DescribeMlflowTrackingServer(ctx, &sagemaker.DescribeMlflowTrackingServerInput{
		TrackingServerName: aws.String(serverName),
	})
	if err != nil {
		if isResourceNotFound(err) {
			return action.NewError(action.CodeNotFound,
				errors.Newf("MLflow tracking server %q not found", serverName))
		}

		return errors.Wrapf(err, "failed to describe MLflow tracking server %q", serverName)
	}

	ready := false
	for _, state := range trackingServerReadyStates {
		if out.TrackingServerStatus == state {
			ready = true
			break
		}
	}

	body := map[string]any{
		"tracking_server_name": serverName,
		"status":               string(out.TrackingServerStatus),
		"is_ready":             ready,
	}
	if url := aws.ToString(out.TrackingServerUrl); url != "" {
		body["tracking_server_url"] = url
	}

	w.SetBody(body)

	return nil
}

// repoFullName builds the username/repo form the project template expects.
// Agents sometimes pass the repository already qualified; only the last
// path segment is kept in that case.
func repoFullName(username, repo string) string {
	if i := strings.LastIndex(repo, "/"); i >= 0 {
		repo = repo[i+1:]
	}

	return username + "/" + repo
}
