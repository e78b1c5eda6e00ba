package backup

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorageProvider implements StorageProvider for Google Cloud Storage
type GCSStorageProvider struct {
	client *storage.Client
	bucket string
}

// NewGCSStorageProvider creates a new GCSStorageProvider instance
func NewGCSStorageProvider(config *GCSConfig) (*GCSStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("GCS storage configuration is required", nil)
	}
	if config.Bucket == "" {
		return nil, NewValidationError("GCS bucket is required", nil)
	}

	ctx := context.Background()
	var opts []option.ClientOption
	if config.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, NewStorageError("failed to create GCS client", err)
	}

	return &GCSStorageProvider{
		client: client,
		bucket: config.Bucket,
	}, nil
}

// gcsStorageClass maps the logical tier to the GCS storage class
func gcsStorageClass(tier StorageTier) (string, error) {
	switch tier {
	case StorageTierStandard:
		return "STANDARD", nil
	case StorageTierInfrequent:
		return "NEARLINE", nil
	case StorageTierCold:
		return "COLDLINE", nil
	default:
		return "", errUnknownTier(tier)
	}
}

// Upload pushes the artifact to GCS with its tier's storage class and
// audit metadata, returning the gs:// location
func (p *GCSStorageProvider) Upload(ctx context.Context, req UploadRequest) (string, error) {
	storageClass, err := gcsStorageClass(req.StorageTier)
	if err != nil {
		return "", err
	}

	file, err := os.Open(req.LocalPath)
	if err != nil {
		return "", NewUploadError("failed to open artifact for upload", err)
	}
	defer file.Close()

	key := ObjectKey(req)

	obj := p.client.Bucket(p.bucket).Object(key)
	writer := obj.NewWriter(ctx)
	writer.StorageClass = storageClass
	writer.Metadata = ObjectMetadata(req)

	if _, err := io.Copy(writer, file); err != nil {
		writer.Close()
		return "", NewUploadError(fmt.Sprintf("failed to upload artifact to gs://%s/%s", p.bucket, key), err)
	}
	if err := writer.Close(); err != nil {
		return "", NewUploadError(fmt.Sprintf("failed to finalize upload to gs://%s/%s", p.bucket, key), err)
	}

	return fmt.Sprintf("gs://%s/%s", p.bucket, key), nil
}

// Scheme returns the location scheme produced by this provider
func (p *GCSStorageProvider) Scheme() string { return "gs" }

// Close releases the underlying GCS client
func (p *GCSStorageProvider) Close() error {
	return p.client.Close()
}
