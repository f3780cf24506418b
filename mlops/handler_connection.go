package mlops

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codeconnections"
	cctypes "github.com/aws/aws-sdk-go-v2/service/codeconnections/types"
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/cockroachdb/errors"
)

// connectionProviders are the Git hosting providers a code connection can
// target.
var connectionProviders = []string{"GitHub", "Bitbucket", "GitHubEnterpriseServer"}

// ConfigureCodeConnection creates a CodeConnections connection to a Git
// provider. New connections always come back PENDING because a human must
// complete the OAuth handshake in the console, so the body spells out
// exactly where to click.
func (h *Handlers) ConfigureCodeConnection(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error {
	if err := Require(params, "connection_name"); err != nil {
		return err
	}

	name := params.Get("connection_name")
	if err := ValidateConnectionName(name); err != nil {
		return err
	}

	provider := params.GetDefault("provider_type", "GitHub")
	if err := OneOf("provider_type", provider, connectionProviders...); err != nil {
		return err
	}

	out, err := h.connections.CreateConnection(ctx, &codeconnections.CreateConnectionInput{
		ConnectionName: aws.String(name),
		ProviderType:   cctypes.ProviderType(provider),
		Tags:           ConnectionTags(PurposeAutomation),
	})
	if err != nil {
		if isAlreadyExists(err) {
			return action.NewConflictError(
				errors.Newf("connection %q already exists", name),
				fmt.Sprintf("%s-%d", name, time.Now().Unix()))
		}

		return errors.Wrapf(err, "failed to create code connection %q", name)
	}

	w.SetBody(map[string]any{
		"message":        fmt.Sprintf("Successfully created code connection: %s", name),
		"connection_arn": aws.ToString(out.ConnectionArn),
		// CreateConnection returns no status field; a fresh connection is
		// always pending the provider handshake.
		"connection_status": "PENDING",
		"connection_name":   name,
		"provider_type":     provider,
		"next_steps": []string{
			"Complete the connection setup in the AWS Console",
			"Navigate to: AWS Console > Developer Tools > Settings > Connections",
			fmt.Sprintf("Find connection %q and click 'Update pending connection'", name),
		},
	})

	return nil
}
