package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorageProvider implements StorageProvider on the local filesystem,
// mainly for development and testing
type LocalStorageProvider struct {
	basePath string
}

// localObjectMetadata is the sidecar record written next to each artifact
type localObjectMetadata struct {
	TenantID    string `json:"tenant_id"`
	JobID       int64  `json:"job_id"`
	Kind        string `json:"kind"`
	StorageTier string `json:"storage_tier"`
	Compression string `json:"compression"`
	SizeBytes   int64  `json:"size_bytes"`
}

// NewLocalStorageProvider creates a new LocalStorageProvider instance
func NewLocalStorageProvider(config *LocalConfig) (*LocalStorageProvider, error) {
	if config == nil || config.BasePath == "" {
		return nil, NewValidationError("local storage base path is required", nil)
	}
	if err := os.MkdirAll(config.BasePath, 0o755); err != nil {
		return nil, NewStorageError("failed to create local storage directory", err)
	}
	return &LocalStorageProvider{basePath: config.BasePath}, nil
}

// Upload copies the artifact under the base path and writes a sidecar
// metadata file recording the tier, returning the file:// location
func (p *LocalStorageProvider) Upload(ctx context.Context, req UploadRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", NewUploadError("upload cancelled", err)
	}

	key := ObjectKey(req)
	destPath := filepath.Join(p.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", NewUploadError("failed to create destination directory", err)
	}

	size, err := copyFile(destPath, req.LocalPath)
	if err != nil {
		os.Remove(destPath)
		return "", NewUploadError("failed to copy artifact", err)
	}

	meta := localObjectMetadata{
		TenantID:    req.TenantID,
		JobID:       req.JobID,
		Kind:        string(req.Kind),
		StorageTier: string(req.StorageTier),
		Compression: string(req.Compression),
		SizeBytes:   size,
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", NewUploadError("failed to encode artifact metadata", err)
	}
	if err := os.WriteFile(destPath+".meta.json", metaBytes, 0o644); err != nil {
		return "", NewUploadError("failed to write artifact metadata", err)
	}

	return fmt.Sprintf("file://%s", destPath), nil
}

// Scheme returns the location scheme produced by this provider
func (p *LocalStorageProvider) Scheme() string { return "file" }

func copyFile(dst, src string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}

	size, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return 0, err
	}
	return size, out.Close()
}
