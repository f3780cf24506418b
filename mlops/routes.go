package mlops

import (
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/cockroachdb/errors"
)

// Op enumerates the agent operations this runtime serves. The zero value is
// invalid so a forgotten wiring cannot pass for a real operation.
type Op int

const (
	opInvalid Op = iota
	OpConfigureCodeConnection
	OpCreateMLOpsProject
	OpManageProjectLifecycle
	OpListMLOpsTemplates
	OpBuildCICDPipeline
	OpManageModelApproval
	OpManageStagingApproval
	OpCreateFeatureStoreGroup
	OpCreateMLflowServer
	OpCreateModelGroup
	opCount
)

// Path returns the agent-facing API path of the operation, empty for
// invalid operations.
func (o Op) Path() string {
	switch o {
	case OpConfigureCodeConnection:
		return "/configure-code-connection"
	case OpCreateMLOpsProject:
		return "/create-mlops-project"
	case OpManageProjectLifecycle:
		return "/manage-project-lifecycle"
	case OpListMLOpsTemplates:
		return "/list-mlops-templates"
	case OpBuildCICDPipeline:
		return "/build-cicd-pipeline"
	case OpManageModelApproval:
		return "/manage-model-approval"
	case OpManageStagingApproval:
		return "/manage-staging-approval"
	case OpCreateFeatureStoreGroup:
		return "/create-feature-store-group"
	case OpCreateMLflowServer:
		return "/create-mlflow-server"
	case OpCreateModelGroup:
		return "/create-model-group"
	}

	return ""
}

func (o Op) String() string { return o.Path() }

// Register wires every operation onto the mux. It walks the full operation
// set so an operation without a handler or path fails at startup, never on
// a live invocation.
func Register(mux *action.Mux, h *Handlers) error {
	handlers := map[Op]action.HandlerFunc{
		OpConfigureCodeConnection: h.ConfigureCodeConnection,
		OpCreateMLOpsProject:      h.CreateMLOpsProject,
		OpManageProjectLifecycle:  h.ManageProjectLifecycle,
		OpListMLOpsTemplates:      h.ListMLOpsTemplates,
		OpBuildCICDPipeline:       h.BuildCICDPipeline,
		OpManageModelApproval:     h.ManageModelApproval,
		OpManageStagingApproval:   h.ManageStagingApproval,
		OpCreateFeatureStoreGroup: h.CreateFeatureStoreGroup,
		OpCreateMLflowServer:      h.CreateMLflowServer,
		OpCreateModelGroup:        h.CreateModelGroup,
	}

	for op := opInvalid + 1; op < opCount; op++ {
		handler, ok := handlers[op]
		if !ok {
			return errors.Newf("operation %q has no handler", op)
		}
		if op.Path() == "" {
			return errors.Newf("operation %d has no path", int(op))
		}

		mux.Handle(op.Path(), handler)
	}

	return nil
}
