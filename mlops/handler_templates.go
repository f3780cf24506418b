package mlops

import (
	"context"
	"fmt"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
)

// ListMLOpsTemplates reports the MLOps project templates available in the
// account's Service Catalog. The listing is live; product ids differ per
// account and are never assumed.
func (h *Handlers) ListMLOpsTemplates(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error {
	templates, err := h.discovery.ListTemplates(ctx)
	if err != nil {
		return err
	}

	body := map[string]any{
		"message":     fmt.Sprintf("Found %d MLOps templates", len(templates)),
		"templates":   templates,
		"total_count": len(templates),
	}
	if len(templates) > 0 {
		body["usage"] = fmt.Sprintf(
			"Use product_id %q for MLOps projects with GitHub integration", templates[0].ProductID)
	}

	w.SetBody(body)

	return nil
}
