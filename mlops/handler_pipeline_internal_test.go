package mlops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	cptypes "github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
)

func actionState(name string, latest *cptypes.ActionExecution) cptypes.ActionState {
	return cptypes.ActionState{ActionName: aws.String(name), LatestExecution: latest}
}

func TestPendingApprovals(t *testing.T) {
	for _, tt := range []struct {
		name  string
		state *codepipeline.GetPipelineStateOutput
		want  []pendingApproval
	}{
		{
			name:  "empty state",
			state: &codepipeline.GetPipelineStateOutput{},
			want:  nil,
		},
		{
			name: "action never executed",
			state: &codepipeline.GetPipelineStateOutput{StageStates: []cptypes.StageState{{
				StageName:    aws.String("Deploy"),
				ActionStates: []cptypes.ActionState{actionState("Approve", nil)},
			}}},
			want: nil,
		},
		{
			name: "in progress without a token is not an approval",
			state: &codepipeline.GetPipelineStateOutput{StageStates: []cptypes.StageState{{
				StageName: aws.String("Deploy"),
				ActionStates: []cptypes.ActionState{actionState("BuildModel", &cptypes.ActionExecution{
					Status: cptypes.ActionExecutionStatusInProgress,
				})},
			}}},
			want: nil,
		},
		{
			name: "finished gate keeps its token but is not pending",
			state: &codepipeline.GetPipelineStateOutput{StageStates: []cptypes.StageState{{
				StageName: aws.String("Deploy"),
				ActionStates: []cptypes.ActionState{actionState("Approve", &cptypes.ActionExecution{
					Status: cptypes.ActionExecutionStatusSucceeded,
					Token:  aws.String("tok-done"),
				})},
			}}},
			want: nil,
		},
		{
			name: "waiting gate",
			state: &codepipeline.GetPipelineStateOutput{StageStates: []cptypes.StageState{{
				StageName: aws.String("DeployStaging"),
				ActionStates: []cptypes.ActionState{actionState("Approve", &cptypes.ActionExecution{
					Status: cptypes.ActionExecutionStatusInProgress,
					Token:  aws.String("tok-1"),
				})},
			}}},
			want: []pendingApproval{{Stage: "DeployStaging", Action: "Approve", Token: "tok-1"}},
		},
		{
			name: "gates across stages keep pipeline order",
			state: &codepipeline.GetPipelineStateOutput{StageStates: []cptypes.StageState{
				{
					StageName: aws.String("Staging"),
					ActionStates: []cptypes.ActionState{actionState("ApproveStaging", &cptypes.ActionExecution{
						Status: cptypes.ActionExecutionStatusInProgress,
						Token:  aws.String("tok-1"),
					})},
				},
				{
					StageName: aws.String("Production"),
					ActionStates: []cptypes.ActionState{actionState("ApproveProd", &cptypes.ActionExecution{
						Status: cptypes.ActionExecutionStatusInProgress,
						Token:  aws.String("tok-2"),
					})},
				},
			}},
			want: []pendingApproval{
				{Stage: "Staging", Action: "ApproveStaging", Token: "tok-1"},
				{Stage: "Production", Action: "ApproveProd", Token: "tok-2"},
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := pendingApprovals(tt.state)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d approvals, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("approval %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMergePipelineParameters(t *testing.T) {
	t.Run("replaces declared defaults in place", func(t *testing.T) {
		definition := map[string]any{"Parameters": []any{
			map[string]any{"Name": "region", "Type": "String", "DefaultValue": "us-west-2"},
		}}

		mergePipelineParameters(definition, map[string]string{"region": "eu-central-1"})

		params := definition["Parameters"].([]any)
		if len(params) != 1 {
			t.Fatalf("got %d parameters, want 1", len(params))
		}
		if got := params[0].(map[string]any)["DefaultValue"]; got != "eu-central-1" {
			t.Errorf("got default %v, want eu-central-1", got)
		}
	})

	t.Run("appends missing parameters sorted by name", func(t *testing.T) {
		definition := map[string]any{}

		mergePipelineParameters(definition, map[string]string{
			"bucket_name": "ml-artifacts",
			"region":      "us-east-1",
			"bucket_key":  "models",
		})

		params := definition["Parameters"].([]any)
		if len(params) != 3 {
			t.Fatalf("got %d parameters, want 3", len(params))
		}
		var names []string
		for _, entry := range params {
			param := entry.(map[string]any)
			names = append(names, param["Name"].(string))
			if got := param["Type"]; got != "String" {
				t.Errorf("parameter %v: got type %v, want String", param["Name"], got)
			}
		}
		if got, want := strings.Join(names, ","), "bucket_key,bucket_name,region"; got != want {
			t.Errorf("got order %s, want %s", got, want)
		}
	})

	t.Run("keeps entries it cannot interpret", func(t *testing.T) {
		definition := map[string]any{"Parameters": []any{
			"bogus",
			map[string]any{"Type": "String"},
		}}

		mergePipelineParameters(definition, map[string]string{"region": "us-east-1"})

		params := definition["Parameters"].([]any)
		if len(params) != 3 {
			t.Fatalf("got %d parameters, want 3", len(params))
		}
		if params[0] != "bogus" {
			t.Errorf("got first entry %v, want bogus", params[0])
		}
		if got := params[2].(map[string]any)["Name"]; got != "region" {
			t.Errorf("got appended name %v, want region", got)
		}
	})
}

func TestExtractedRepoDir(t *testing.T) {
	t.Run("finds the branch suffixed folder", func(t *testing.T) {
		scratch := t.TempDir()
		if err := os.Mkdir(filepath.Join(scratch, "model-build-main"), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(scratch, "README.txt"), []byte("stray"), 0o640); err != nil {
			t.Fatal(err)
		}

		got, err := extractedRepoDir(scratch, "octocat/model-build")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := filepath.Join(scratch, "model-build-main"); got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	})

	t.Run("plain file with the repository name does not count", func(t *testing.T) {
		scratch := t.TempDir()
		if err := os.WriteFile(filepath.Join(scratch, "model-build-main"), []byte("file"), 0o640); err != nil {
			t.Fatal(err)
		}

		if _, err := extractedRepoDir(scratch, "model-build"); err == nil {
			t.Fatal("expected an error for a scratch dir without a repository folder")
		}
	})

	t.Run("missing folder", func(t *testing.T) {
		_, err := extractedRepoDir(t.TempDir(), "octocat/model-build")
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), `archive of "octocat/model-build" did not contain a repository folder`) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
