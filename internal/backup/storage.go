package backup

import (
	"fmt"
	"path"
	"path/filepath"
)

// ObjectKey computes the deterministic storage key for a job's artifact.
// The same job always maps to the same key, so a re-upload after a restart
// overwrites the previous attempt instead of duplicating it.
func ObjectKey(req UploadRequest) string {
	return path.Join(
		"tenants", req.TenantID,
		"jobs", fmt.Sprintf("%d", req.JobID),
		filepath.Base(req.LocalPath),
	)
}

// ObjectMetadata builds the descriptive metadata attached to every stored
// artifact for later auditability
func ObjectMetadata(req UploadRequest) map[string]string {
	return map[string]string{
		"tenant-id":   req.TenantID,
		"job-id":      fmt.Sprintf("%d", req.JobID),
		"kind":        string(req.Kind),
		"compression": string(req.Compression),
	}
}

// ErrUnknownTier is reported when a provider meets a tier outside the enum
func errUnknownTier(tier StorageTier) *BackupError {
	return NewValidationError(fmt.Sprintf("unknown storage tier: %s", tier), nil)
}
