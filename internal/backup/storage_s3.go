package backup

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3StorageProvider implements StorageProvider for Amazon S3
type S3StorageProvider struct {
	client *s3.S3
	bucket string
}

// NewS3StorageProvider creates a new S3StorageProvider instance
func NewS3StorageProvider(config *S3Config) (*S3StorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("S3 storage configuration is required", nil)
	}
	if config.Bucket == "" || config.Region == "" {
		return nil, NewValidationError("S3 bucket and region are required", nil)
	}

	awsConfig := &aws.Config{Region: aws.String(config.Region)}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, NewStorageError("failed to create AWS session", err)
	}

	return &S3StorageProvider{
		client: s3.New(sess),
		bucket: config.Bucket,
	}, nil
}

// s3StorageClass maps the logical tier to the S3 storage class
func s3StorageClass(tier StorageTier) (string, error) {
	switch tier {
	case StorageTierStandard:
		return s3.StorageClassStandard, nil
	case StorageTierInfrequent:
		return s3.StorageClassStandardIa, nil
	case StorageTierCold:
		return s3.StorageClassGlacier, nil
	default:
		return "", errUnknownTier(tier)
	}
}

// Upload pushes the artifact to S3 with its tier's storage class and
// audit metadata, returning the s3:// location
func (p *S3StorageProvider) Upload(ctx context.Context, req UploadRequest) (string, error) {
	storageClass, err := s3StorageClass(req.StorageTier)
	if err != nil {
		return "", err
	}

	file, err := os.Open(req.LocalPath)
	if err != nil {
		return "", NewUploadError("failed to open artifact for upload", err)
	}
	defer file.Close()

	key := ObjectKey(req)

	metadata := make(map[string]*string)
	for k, v := range ObjectMetadata(req) {
		metadata[k] = aws.String(v)
	}

	_, err = p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(key),
		Body:         file,
		StorageClass: aws.String(storageClass),
		Metadata:     metadata,
	})
	if err != nil {
		return "", NewUploadError(fmt.Sprintf("failed to upload artifact to s3://%s/%s", p.bucket, key), err)
	}

	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}

// Scheme returns the location scheme produced by this provider
func (p *S3StorageProvider) Scheme() string { return "s3" }
