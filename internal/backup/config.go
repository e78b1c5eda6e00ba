package backup

import (
	"os"
	"time"

	"pg-tenant-backup/internal/database"
)

// BackupSystemConfig represents the complete backup subsystem configuration
type BackupSystemConfig struct {
	Database    database.DatabaseConfig `yaml:"database" mapstructure:"database"`
	Storage     StorageConfig           `yaml:"storage" mapstructure:"storage"`
	Compression CompressionConfig       `yaml:"compression" mapstructure:"compression"`
	Encryption  EncryptionConfig        `yaml:"encryption" mapstructure:"encryption"`
	Pipeline    PipelineConfig          `yaml:"pipeline" mapstructure:"pipeline"`
	Scheduler   SchedulerConfig         `yaml:"scheduler" mapstructure:"scheduler"`
	PolicyFile  string                  `yaml:"policy_file" mapstructure:"policy_file"`
}

// StorageConfig defines storage provider configuration
type StorageConfig struct {
	Provider StorageProviderType `yaml:"provider" mapstructure:"provider"`
	Local    *LocalConfig        `yaml:"local,omitempty" mapstructure:"local"`
	S3       *S3Config           `yaml:"s3,omitempty" mapstructure:"s3"`
	Azure    *AzureConfig        `yaml:"azure,omitempty" mapstructure:"azure"`
	GCS      *GCSConfig          `yaml:"gcs,omitempty" mapstructure:"gcs"`
}

// LocalConfig for local file system storage
type LocalConfig struct {
	BasePath    string      `yaml:"base_path" mapstructure:"base_path"`
	Permissions os.FileMode `yaml:"permissions" mapstructure:"permissions"`
}

// S3Config for Amazon S3 storage
type S3Config struct {
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Region    string `yaml:"region" mapstructure:"region"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
}

// AzureConfig for Azure Blob Storage
type AzureConfig struct {
	AccountName   string `yaml:"account_name" mapstructure:"account_name"`
	AccountKey    string `yaml:"account_key" mapstructure:"account_key"`
	ContainerName string `yaml:"container_name" mapstructure:"container_name"`
}

// GCSConfig for Google Cloud Storage
type GCSConfig struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	CredentialsPath string `yaml:"credentials_path" mapstructure:"credentials_path"`
	ProjectID       string `yaml:"project_id" mapstructure:"project_id"`
}

// CompressionConfig defines compression settings
type CompressionConfig struct {
	Algorithm CompressionType `yaml:"algorithm" mapstructure:"algorithm"`
	Level     int             `yaml:"level" mapstructure:"level"`
}

// EncryptionConfig defines optional artifact encryption settings
type EncryptionConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	KeyEnvVar string `yaml:"key_env_var" mapstructure:"key_env_var"`

	// KeyRetriever can be overridden for testing or custom key management
	KeyRetriever func() ([]byte, error) `yaml:"-" mapstructure:"-"`
}

// PipelineConfig bounds the asynchronous dump/compress/upload pipeline
type PipelineConfig struct {
	WorkDir         string        `yaml:"work_dir" mapstructure:"work_dir"`
	Workers         int           `yaml:"workers" mapstructure:"workers"`
	QueueSize       int           `yaml:"queue_size" mapstructure:"queue_size"`
	DumpTimeout     time.Duration `yaml:"dump_timeout" mapstructure:"dump_timeout"`
	CompressTimeout time.Duration `yaml:"compress_timeout" mapstructure:"compress_timeout"`
	UploadTimeout   time.Duration `yaml:"upload_timeout" mapstructure:"upload_timeout"`
	PgDumpPath      string        `yaml:"pg_dump_path" mapstructure:"pg_dump_path"`
}

// SchedulerConfig controls the periodic sweep
type SchedulerConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
	OffPeakHour   int           `yaml:"off_peak_hour" mapstructure:"off_peak_hour"`
	AdvisoryLock  int64         `yaml:"advisory_lock" mapstructure:"advisory_lock"`
}

// SetDefaults fills unset fields with production defaults
func (c *BackupSystemConfig) SetDefaults() {
	if c.Storage.Provider == "" {
		c.Storage.Provider = StorageProviderLocal
	}
	if c.Storage.Provider == StorageProviderLocal && c.Storage.Local == nil {
		c.Storage.Local = &LocalConfig{BasePath: "/var/lib/pg-tenant-backup/artifacts"}
	}
	if c.Storage.Local != nil && c.Storage.Local.Permissions == 0 {
		c.Storage.Local.Permissions = 0o700
	}
	if c.Compression.Algorithm == "" {
		c.Compression.Algorithm = CompressionTypeGzip
	}
	if c.Compression.Level == 0 {
		c.Compression.Level = 6
	}
	if c.Encryption.KeyEnvVar == "" {
		c.Encryption.KeyEnvVar = "PG_TENANT_BACKUP_KEY"
	}
	if c.Pipeline.WorkDir == "" {
		c.Pipeline.WorkDir = os.TempDir()
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 2
	}
	if c.Pipeline.QueueSize <= 0 {
		c.Pipeline.QueueSize = 32
	}
	if c.Pipeline.DumpTimeout <= 0 {
		c.Pipeline.DumpTimeout = 30 * time.Minute
	}
	if c.Pipeline.CompressTimeout <= 0 {
		c.Pipeline.CompressTimeout = 30 * time.Minute
	}
	if c.Pipeline.UploadTimeout <= 0 {
		c.Pipeline.UploadTimeout = 30 * time.Minute
	}
	if c.Pipeline.PgDumpPath == "" {
		c.Pipeline.PgDumpPath = "pg_dump"
	}
	if c.Scheduler.SweepInterval <= 0 {
		c.Scheduler.SweepInterval = time.Minute
	}
	if c.Scheduler.OffPeakHour < 0 || c.Scheduler.OffPeakHour > 23 {
		c.Scheduler.OffPeakHour = 3
	}
	if c.Scheduler.AdvisoryLock == 0 {
		c.Scheduler.AdvisoryLock = 815101
	}
}

// Validate validates the BackupSystemConfig
func (c *BackupSystemConfig) Validate() error {
	var errs ValidationErrors

	if err := c.Database.Validate(); err != nil {
		errs.Add("database", err.Error())
	}
	if err := c.Storage.Validate(); err != nil {
		if storageErrs, ok := err.(ValidationErrors); ok {
			errs = append(errs, storageErrs...)
		} else {
			errs.Add("storage", err.Error())
		}
	}
	switch c.Compression.Algorithm {
	case CompressionTypeNone, CompressionTypeGzip, CompressionTypeLZ4, CompressionTypeZstd:
	default:
		errs.Add("compression.algorithm", "unsupported algorithm "+string(c.Compression.Algorithm))
	}
	if c.Encryption.Enabled && c.Encryption.KeyEnvVar == "" && c.Encryption.KeyRetriever == nil {
		errs.Add("encryption", "encryption enabled but no key source configured")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate checks the storage configuration against its provider type
func (sc *StorageConfig) Validate() error {
	var errs ValidationErrors

	switch sc.Provider {
	case StorageProviderLocal:
		if sc.Local == nil || sc.Local.BasePath == "" {
			errs.Add("storage.local.base_path", "base path is required for local storage")
		}
	case StorageProviderS3:
		if sc.S3 == nil {
			errs.Add("storage.s3", "s3 configuration is required")
		} else {
			if sc.S3.Bucket == "" {
				errs.Add("storage.s3.bucket", "bucket is required")
			}
			if sc.S3.Region == "" {
				errs.Add("storage.s3.region", "region is required")
			}
		}
	case StorageProviderAzure:
		if sc.Azure == nil {
			errs.Add("storage.azure", "azure configuration is required")
		} else {
			if sc.Azure.AccountName == "" {
				errs.Add("storage.azure.account_name", "account name is required")
			}
			if sc.Azure.AccountKey == "" {
				errs.Add("storage.azure.account_key", "account key is required")
			}
			if sc.Azure.ContainerName == "" {
				errs.Add("storage.azure.container_name", "container name is required")
			}
		}
	case StorageProviderGCS:
		if sc.GCS == nil || sc.GCS.Bucket == "" {
			errs.Add("storage.gcs.bucket", "bucket is required")
		}
	default:
		errs.Add("storage.provider", "unsupported storage provider "+string(sc.Provider))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// GetEncryptionKey resolves the AES key from the configured source
func (ec *EncryptionConfig) GetEncryptionKey() ([]byte, error) {
	if ec.KeyRetriever != nil {
		return ec.KeyRetriever()
	}
	key := os.Getenv(ec.KeyEnvVar)
	if key == "" {
		return nil, NewEncryptionError("encryption key environment variable "+ec.KeyEnvVar+" is empty", nil)
	}
	return []byte(key), nil
}
