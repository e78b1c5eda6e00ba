package backup

import (
	"errors"
	"fmt"
)

// BackupError represents errors that occur during backup operations
type BackupError struct {
	Type    BackupErrorType        `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *BackupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// BackupErrorType represents different types of backup errors
type BackupErrorType string

const (
	BackupErrorTypeTenantNotFound BackupErrorType = "TENANT_NOT_FOUND"
	BackupErrorTypeSchemaNotFound BackupErrorType = "SCHEMA_NOT_FOUND"
	BackupErrorTypeDump           BackupErrorType = "DUMP_EXECUTION_ERROR"
	BackupErrorTypeCompression    BackupErrorType = "COMPRESSION_ERROR"
	BackupErrorTypeEncryption     BackupErrorType = "ENCRYPTION_ERROR"
	BackupErrorTypeUpload         BackupErrorType = "UPLOAD_ERROR"
	BackupErrorTypeTimeout        BackupErrorType = "TIMEOUT_ERROR"
	BackupErrorTypePolicyNotFound BackupErrorType = "POLICY_NOT_FOUND"
	BackupErrorTypeValidation     BackupErrorType = "VALIDATION_ERROR"
	BackupErrorTypeDatabase       BackupErrorType = "DATABASE_ERROR"
	BackupErrorTypeStorage        BackupErrorType = "STORAGE_ERROR"
)

// NewBackupError creates a new BackupError
func NewBackupError(errorType BackupErrorType, message string, cause error) *BackupError {
	return &BackupError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Common error constructors

func NewTenantNotFoundError(tenantID string) *BackupError {
	return NewBackupError(BackupErrorTypeTenantNotFound,
		fmt.Sprintf("tenant %s is not registered", tenantID), nil).
		WithContext("tenant_id", tenantID)
}

func NewSchemaNotFoundError(schemaName string) *BackupError {
	return NewBackupError(BackupErrorTypeSchemaNotFound,
		fmt.Sprintf("schema %s does not exist in the catalog", schemaName), nil).
		WithContext("schema", schemaName)
}

func NewDumpError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeDump, message, cause)
}

func NewCompressionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCompression, message, cause)
}

func NewEncryptionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeEncryption, message, cause)
}

func NewUploadError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeUpload, message, cause)
}

func NewTimeoutError(stage string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeTimeout,
		fmt.Sprintf("%s stage exceeded its deadline", stage), cause).
		WithContext("stage", stage)
}

func NewPolicyNotFoundError(tierID string) *BackupError {
	return NewBackupError(BackupErrorTypePolicyNotFound,
		fmt.Sprintf("no retention policy configured for tier %s", tierID), nil).
		WithContext("tier_id", tierID)
}

func NewValidationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeValidation, message, cause)
}

func NewDatabaseError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeDatabase, message, cause)
}

func NewStorageError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeStorage, message, cause)
}

// ErrorType extracts the BackupErrorType from an error chain, or empty string
func ErrorType(err error) BackupErrorType {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		return backupErr.Type
	}
	return ""
}

// IsErrorType reports whether err carries the given backup error type
func IsErrorType(err error, errorType BackupErrorType) bool {
	return ErrorType(err) == errorType
}

// ErrInvalidTransition is returned when a job-status update would violate the
// monotonic pending -> running -> terminal state machine.
var ErrInvalidTransition = errors.New("invalid backup job status transition")

// ErrJobNotFound is returned when a job id does not exist
var ErrJobNotFound = errors.New("backup job not found")

// ValidationErrors aggregates multiple field-level validation failures
type ValidationErrors []FieldError

// FieldError describes a single invalid configuration field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Add appends a field error
func (ve *ValidationErrors) Add(field, message string) {
	*ve = append(*ve, FieldError{Field: field, Message: message})
}

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	msg := "validation failed:"
	for _, fe := range ve {
		msg += fmt.Sprintf(" %s: %s;", fe.Field, fe.Message)
	}
	return msg
}

// HasErrors reports whether any validation error was recorded
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}
