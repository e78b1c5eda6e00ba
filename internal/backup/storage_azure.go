package backup

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureStorageProvider implements StorageProvider for Azure Blob Storage
type AzureStorageProvider struct {
	containerURL azblob.ContainerURL
	accountName  string
	container    string
}

// NewAzureStorageProvider creates a new AzureStorageProvider instance
func NewAzureStorageProvider(config *AzureConfig) (*AzureStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("Azure storage configuration is required", nil)
	}
	if config.AccountName == "" || config.AccountKey == "" || config.ContainerName == "" {
		return nil, NewValidationError("Azure account name, account key and container name are required", nil)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewStorageError("failed to create Azure credential", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	containerRawURL := fmt.Sprintf("https://%s.blob.core.windows.net/%s", config.AccountName, config.ContainerName)
	parsedURL, err := url.Parse(containerRawURL)
	if err != nil {
		return nil, NewStorageError("failed to parse Azure container URL", err)
	}

	return &AzureStorageProvider{
		containerURL: azblob.NewContainerURL(*parsedURL, pipeline),
		accountName:  config.AccountName,
		container:    config.ContainerName,
	}, nil
}

// azureAccessTier maps the logical tier to the Azure blob access tier
func azureAccessTier(tier StorageTier) (azblob.AccessTierType, error) {
	switch tier {
	case StorageTierStandard:
		return azblob.AccessTierHot, nil
	case StorageTierInfrequent:
		return azblob.AccessTierCool, nil
	case StorageTierCold:
		return azblob.AccessTierArchive, nil
	default:
		return "", errUnknownTier(tier)
	}
}

// Upload pushes the artifact to Azure Blob Storage with its tier's access
// tier and audit metadata, returning the blob URL
func (p *AzureStorageProvider) Upload(ctx context.Context, req UploadRequest) (string, error) {
	accessTier, err := azureAccessTier(req.StorageTier)
	if err != nil {
		return "", err
	}

	file, err := os.Open(req.LocalPath)
	if err != nil {
		return "", NewUploadError("failed to open artifact for upload", err)
	}
	defer file.Close()

	key := ObjectKey(req)
	blobURL := p.containerURL.NewBlockBlobURL(key)

	_, err = azblob.UploadFileToBlockBlob(ctx, file, blobURL, azblob.UploadToBlockBlobOptions{
		Metadata:       azblob.Metadata(ObjectMetadata(req)),
		BlobAccessTier: accessTier,
	})
	if err != nil {
		return "", NewUploadError(fmt.Sprintf("failed to upload artifact to container %s", p.container), err)
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", p.accountName, p.container, key), nil
}

// Scheme returns the location scheme produced by this provider
func (p *AzureStorageProvider) Scheme() string { return "https" }
