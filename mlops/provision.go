package mlops

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Bucket reports what EnsureBucket found or built.
type Bucket struct {
	Name   string
	Prefix string
	// Created is false when an existing bucket was reused.
	Created bool
	// WriteVerified reports whether the write round-trip probe succeeded.
	// Callers decide how hard to fail: MLflow artifact storage is useless
	// without write access, a CI/CD artifact bucket can proceed with a
	// warning.
	WriteVerified bool
}

// Provisioner ensures S3 artifact storage exists, is tagged, and is
// writable before anything is pointed at it.
type Provisioner struct {
	s3     S3Client
	sts    STSClient
	region string
	settle time.Duration
}

// NewProvisioner creates a Provisioner for the configured region.
func NewProvisioner(s3c S3Client, stsc STSClient, env Environment) *Provisioner {
	return &Provisioner{
		s3:     s3c,
		sts:    stsc,
		region: env.awsRegion(),
		settle: env.provisionSettle(),
	}
}

// ParseS3URI splits s3://bucket/prefix into its parts and validates the
// bucket name. The scheme is optional so a bare bucket name also works.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	if uri == "" {
		return "", "", badRequest(errors.New("S3 URI is required"))
	}
	path := strings.TrimPrefix(uri, "s3://")
	bucket, prefix, _ = strings.Cut(path, "/")
	if err := ValidateBucketName(bucket); err != nil {
		return "", "", err
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// EnsureBucket probes the bucket behind uri and creates it when absent,
// then verifies write access with a put-and-delete round trip. A name
// conflict returns a 409-coded error carrying three alternative names; the
// agent must pick one, the provisioner never renames on its own.
func (p *Provisioner) EnsureBucket(ctx context.Context, uri, purpose string) (Bucket, error) {
	name, prefix, err := ParseS3URI(uri)
	if err != nil {
		return Bucket{}, err
	}

	bucket := Bucket{Name: name, Prefix: prefix}

	_, err = p.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
	switch {
	case err == nil:
		// Exists and accessible, reuse it.
	case isBucketNotFound(err):
		if err := p.createBucket(ctx, name, purpose); err != nil {
			return bucket, err
		}
		bucket.Created = true
	case isBucketForbidden(err):
		// Owned by another account. Same remedy as a create conflict.
		return bucket, action.NewConflictError(
			errors.Newf("bucket %q exists but is not accessible from this account", name),
			p.suggestNames(ctx, name)...)
	default:
		return bucket, errors.Wrapf(err, "failed to check bucket %q", name)
	}

	if prefix != "" {
		// Zero-byte folder marker so the prefix shows up in the console.
		if _, err := p.s3.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(name),
			Key:    aws.String(prefix + "/"),
			Body:   bytes.NewReader(nil),
			Metadata: map[string]string{
				"CreatedBy": "MLOpsAgent",
				"Purpose":   purpose,
			},
		}); err != nil {
			Log(ctx).Warn("could not create folder marker",
				zap.String("bucket", name), zap.Error(err))
		}
	}

	bucket.WriteVerified = p.verifyWriteAccess(ctx, name, prefix)
	return bucket, nil
}

// createBucket creates and tags the bucket, then waits briefly; new buckets
// are not instantly consistent for follow-up writes.
func (p *Provisioner) createBucket(ctx context.Context, name, purpose string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 is the API default region and rejects an explicit
	// location constraint.
	if p.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(p.region),
		}
	}

	if _, err := p.s3.CreateBucket(ctx, input); err != nil {
		var exists *s3types.BucketAlreadyExists
		var owned *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &exists) || errors.As(err, &owned) {
			return action.NewConflictError(
				errors.Newf("bucket name %q is already taken", name),
				p.suggestNames(ctx, name)...)
		}
		return errors.Wrapf(err, "failed to create bucket %q", name)
	}

	if _, err := p.s3.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket:  aws.String(name),
		Tagging: &s3types.Tagging{TagSet: S3Tags(purpose)},
	}); err != nil {
		Log(ctx).Warn("could not tag bucket", zap.String("bucket", name), zap.Error(err))
	}

	return sleepContext(ctx, p.settle)
}

// verifyWriteAccess writes a probe object and deletes it again. Head and
// create can both succeed while bucket policy still denies writes, which
// would otherwise surface minutes later inside SageMaker.
func (p *Provisioner) verifyWriteAccess(ctx context.Context, name, prefix string) bool {
	key := fmt.Sprintf("mlops-write-test-%d.txt", time.Now().Unix())
	if prefix != "" {
		key = prefix + "/" + key
	}

	if _, err := p.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(name),
		Key:      aws.String(key),
		Body:     strings.NewReader("MLOps agent access test"),
		Metadata: map[string]string{"CreatedBy": "MLOpsAgent"},
	}); err != nil {
		Log(ctx).Warn("bucket write probe failed", zap.String("bucket", name), zap.Error(err))
		return false
	}

	if _, err := p.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(name),
		Key:    aws.String(key),
	}); err != nil {
		Log(ctx).Warn("could not delete write probe object",
			zap.String("bucket", name), zap.Error(err))
	}

	return true
}

// suggestNames proposes alternates for a taken bucket name. Empty when the
// account id cannot be resolved; the conflict error still reports the
// collision.
func (p *Provisioner) suggestNames(ctx context.Context, name string) []string {
	ident, err := p.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		Log(ctx).Warn("could not resolve account id for bucket name suggestions", zap.Error(err))
		return nil
	}
	account := aws.ToString(ident.Account)
	now := time.Now().Unix()
	return []string{
		fmt.Sprintf("%s-%s", name, account),
		fmt.Sprintf("%s-%d", name, now),
		fmt.Sprintf("mlops-%s-%d", account, now),
	}
}

// isBucketNotFound reports whether err is the HeadBucket miss.
func isBucketNotFound(err error) bool {
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}

// isBucketForbidden reports whether err is a HeadBucket against a bucket
// owned by another account.
func isBucketForbidden(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	return code == "Forbidden" || code == "AccessDenied"
}
