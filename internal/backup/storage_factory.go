package backup

import "fmt"

// NewStorageProvider creates the StorageProvider selected by the
// configuration's provider type
func NewStorageProvider(config *StorageConfig) (StorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("storage configuration is required", nil)
	}

	switch config.Provider {
	case StorageProviderLocal:
		return NewLocalStorageProvider(config.Local)
	case StorageProviderS3:
		return NewS3StorageProvider(config.S3)
	case StorageProviderAzure:
		return NewAzureStorageProvider(config.Azure)
	case StorageProviderGCS:
		return NewGCSStorageProvider(config.GCS)
	default:
		return nil, NewValidationError(fmt.Sprintf("unsupported storage provider: %s", config.Provider), nil)
	}
}
