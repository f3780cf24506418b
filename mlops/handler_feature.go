package mlops

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	sagemakertypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// CreateFeatureStoreGroup creates an online-only feature group whose schema
// is parsed out of the agent's natural language feature description.
func (h *Handlers) CreateFeatureStoreGroup(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error {
	if err := Require(params, "feature_group_name"); err != nil {
		return err
	}

	groupName := params.Get("feature_group_name")
	if err := ValidateFeatureGroupName(groupName); err != nil {
		return err
	}

	description := params.GetDefault("description", "Feature group created by MLOps Agent")

	// Agents send both spellings; the plural wins when present.
	featureText := params.Get("feature_descriptions")
	if featureText == "" {
		featureText = params.Get("feature_description")
	}

	schema := ParseFeatureSchema(featureText)

	Log(ctx).Info("parsed feature schema",
		zap.String("record_identifier", schema.RecordIdentifier),
		zap.String("event_time_feature", schema.EventTimeFeature),
		zap.Int("feature_count", len(schema.Features)))

	out, err := h.sagemaker.CreateFeatureGroup(ctx, &sagemaker.CreateFeatureGroupInput{
		FeatureGroupName:            aws.String(groupName),
		RecordIdentifierFeatureName: aws.String(schema.RecordIdentifier),
		EventTimeFeatureName:        aws.String(schema.EventTimeFeature),
		FeatureDefinitions:          schema.Features,
		OnlineStoreConfig:           &sagemakertypes.OnlineStoreConfig{EnableOnlineStore: aws.Bool(true)},
		Description:                 aws.String(description),
		Tags:                        SageMakerTags(PurposeFeatureStore),
	})
	if err != nil {
		if isResourceInUse(err) || isAlreadyExists(err) {
			return action.NewConflictError(
				errors.Newf("feature group %q already exists", groupName),
				fmt.Sprintf("%s-%d", groupName, time.Now().Unix()))
		}

		return errors.Wrapf(err, "failed to create feature group %q", groupName)
	}

	w.SetBody(map[string]any{
		"message":            fmt.Sprintf("Successfully created Feature Group: %s", groupName),
		"feature_group_name": groupName,
		"feature_group_arn":  aws.ToString(out.FeatureGroupArn),
		"record_identifier":  schema.RecordIdentifier,
		"event_time_feature": schema.EventTimeFeature,
		"feature_count":      len(schema.Features),
	})

	return nil
}

// FeatureSchema is the feature group layout parsed from a natural language
// description.
type FeatureSchema struct {
	RecordIdentifier string
	EventTimeFeature string
	Features         []sagemakertypes.FeatureDefinition
}

var (
	recordIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\w+)\s+as\s+(?:string\s+)?identifier`),
		regexp.MustCompile(`(\w+)\s+as\s+(?:the\s+)?(?:record\s+)?(?:id|identifier)`),
	}
	eventTimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\w+)\s+as\s+(?:the\s+)?event\s+time`),
		regexp.MustCompile(`event\s+time\s+feature[:\s]+(\w+)`),
	}
	featurePairPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\w+)\s+as\s+(\w+)`),
		regexp.MustCompile(`(\w+)\s+features?\s+as\s+(\w+)`),
	}
)

// featureTypeNames maps spoken type names to feature store types. Unknown
// type names fall back to String.
var featureTypeNames = map[string]sagemakertypes.FeatureType{
	"string":  sagemakertypes.FeatureTypeString,
	"integer": sagemakertypes.FeatureTypeIntegral,
	"int":     sagemakertypes.FeatureTypeIntegral,
	"long":    sagemakertypes.FeatureTypeIntegral,
	"number":  sagemakertypes.FeatureTypeFractional,
	"float":   sagemakertypes.FeatureTypeFractional,
	"double":  sagemakertypes.FeatureTypeFractional,
	"binary":  sagemakertypes.FeatureTypeFractional,
}

// featureStopwords are words the pair patterns match that are phrasing, not
// feature names ("session features as float" names the feature "session").
var featureStopwords = map[string]bool{
	"feature":  true,
	"features": true,
}

// ParseFeatureSchema extracts a feature group schema from free-form text
// like "user_id as identifier, login_ts as the event time, score as float".
// Absent phrasing falls back to record_id/event_time. The identifier and
// event time columns are always part of the schema, typed String, and every
// feature appears once no matter how often the text mentions it.
func ParseFeatureSchema(text string) FeatureSchema {
	schema := FeatureSchema{
		RecordIdentifier: "record_id",
		EventTimeFeature: "event_time",
	}

	seen := map[string]bool{}
	add := func(name string, ftype sagemakertypes.FeatureType) {
		if seen[name] {
			return
		}
		seen[name] = true
		schema.Features = append(schema.Features, sagemakertypes.FeatureDefinition{
			FeatureName: aws.String(name),
			FeatureType: ftype,
		})
	}

	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		add(schema.RecordIdentifier, sagemakertypes.FeatureTypeString)
		add(schema.EventTimeFeature, sagemakertypes.FeatureTypeString)

		return schema
	}

	for _, rx := range recordIDPatterns {
		if m := rx.FindStringSubmatch(text); m != nil {
			schema.RecordIdentifier = m[1]
			break
		}
	}
	for _, rx := range eventTimePatterns {
		if m := rx.FindStringSubmatch(text); m != nil {
			schema.EventTimeFeature = m[1]
			break
		}
	}

	add(schema.RecordIdentifier, sagemakertypes.FeatureTypeString)
	add(schema.EventTimeFeature, sagemakertypes.FeatureTypeString)

	for _, rx := range featurePairPatterns {
		for _, m := range rx.FindAllStringSubmatch(text, -1) {
			name, typeName := m[1], m[2]
			if name == schema.RecordIdentifier || name == schema.EventTimeFeature || featureStopwords[name] {
				continue
			}

			ftype, ok := featureTypeNames[typeName]
			if !ok {
				ftype = sagemakertypes.FeatureTypeString
			}
			add(name, ftype)
		}
	}

	return schema
}
