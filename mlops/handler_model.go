package mlops

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	sagemakertypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// approvalActions are the decisions ManageModelApproval supports.
var approvalActions = []string{"approve", "reject"}

// ManageModelApproval approves or rejects a model package in the registry.
// Callers either pass the package ARN directly or just the group name, in
// which case the newest package in the group is the one decided on; an
// explicit ARN always wins.
func (h *Handlers) ManageModelApproval(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error {
	packageARN := params.Get("model_package_arn")
	groupName := params.Get("model_package_group_name")

	if packageARN == "" && groupName == "" {
		return badRequest(errors.New("missing required parameters: model_package_arn or model_package_group_name"))
	}

	act := params.GetDefault("action", "approve")
	if err := OneOf("action", act, approvalActions...); err != nil {
		return err
	}

	description := params.GetDefault("approval_description", "Approved by MLOps Agent")

	resolvedFrom := ""
	if packageARN != "" {
		if err := ValidateARN(packageARN); err != nil {
			return err
		}
	} else {
		if err := ValidateModelPackageGroupName(groupName); err != nil {
			return err
		}

		list, err := h.sagemaker.ListModelPackages(ctx, &sagemaker.ListModelPackagesInput{
			ModelPackageGroupName: aws.String(groupName),
			SortBy:                sagemakertypes.ModelPackageSortByCreationTime,
			SortOrder:             sagemakertypes.SortOrderDescending,
			MaxResults:            aws.Int32(1),
		})
		if err != nil {
			return errors.Wrapf(err, "failed to list model packages in group %q", groupName)
		}
		if len(list.ModelPackageSummaryList) == 0 {
			return action.NewError(action.CodeNotFound, errors.Newf(
				"no models found in model package group %q; the pipeline may not have completed yet or no models have been registered",
				groupName))
		}

		packageARN = aws.ToString(list.ModelPackageSummaryList[0].ModelPackageArn)
		resolvedFrom = groupName

		Log(ctx).Info("resolved latest model package",
			zap.String("model_package_group_name", groupName),
			zap.String("model_package_arn", packageARN))
	}

	status := sagemakertypes.ModelApprovalStatusApproved
	verb := "approved"
	if act == "reject" {
		status = sagemakertypes.ModelApprovalStatusRejected
		verb = "rejected"
	}

	if _, err := h.sagemaker.UpdateModelPackage(ctx, &sagemaker.UpdateModelPackageInput{
		ModelPackageArn:     aws.String(packageARN),
		ModelApprovalStatus: status,
		ApprovalDescription: aws.String(description),
	}); err != nil {
		if isResourceNotFound(err) {
			return action.NewError(action.CodeNotFound, errors.Newf("model package %q not found", packageARN))
		}

		return errors.Wrapf(err, "failed to update approval of model package %q", packageARN)
	}

	body := map[string]any{
		"message":              fmt.Sprintf("Successfully %s model package", verb),
		"model_package_arn":    packageARN,
		"approval_status":      string(status),
		"approval_description": description,
	}
	if resolvedFrom != "" {
		body["model_package_group_name"] = resolvedFrom
	}

	w.SetBody(body)

	return nil
}

// CreateModelGroup creates a model package group in the SageMaker model
// registry for versioning and approval of trained models.
func (h *Handlers) CreateModelGroup(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error {
	if err := Require(params, "model_package_group_name"); err != nil {
		return err
	}

	groupName := params.Get("model_package_group_name")
	if err := ValidateModelPackageGroupName(groupName); err != nil {
		return err
	}

	description := params.GetDefault("description", "Model package group created by MLOps Agent")

	out, err := h.sagemaker.CreateModelPackageGroup(ctx, &sagemaker.CreateModelPackageGroupInput{
		ModelPackageGroupName:        aws.String(groupName),
		ModelPackageGroupDescription: aws.String(description),
		Tags:                         SageMakerTags(PurposeModelRegistry),
	})
	if err != nil {
		if isResourceInUse(err) || isAlreadyExists(err) {
			return action.NewConflictError(
				errors.Newf("model package group %q already exists", groupName),
				fmt.Sprintf("%s-v2", groupName),
				fmt.Sprintf("%s-%d", groupName, time.Now().Unix()))
		}

		return errors.Wrapf(err, "failed to create model package group %q", groupName)
	}

	w.SetBody(map[string]any{
		"message":                  fmt.Sprintf("Successfully created Model Package Group: %s", groupName),
		"model_package_group_name": groupName,
		"model_package_group_arn":  aws.ToString(out.ModelPackageGroupArn),
		"description":              description,
		"status":                   "Completed",
		"next_steps": []string{
			"Model Package Group is ready for use",
			"Register model versions to this group",
			"Use for model versioning and approval workflows",
			"Access via SageMaker Studio Model Registry",
		},
	})

	return nil
}
