package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptionManager(key string) *EncryptionManager {
	return NewEncryptionManager(&EncryptionConfig{
		Enabled:      true,
		KeyRetriever: func() ([]byte, error) { return []byte(key), nil },
	})
}

func TestEncryptionManagerDisabled(t *testing.T) {
	em := NewEncryptionManager(&EncryptionConfig{Enabled: false})
	assert.False(t, em.Enabled())
}

func TestEncryptFileRoundTrip(t *testing.T) {
	em := newTestEncryptionManager("correct horse battery staple")
	content := []byte(strings.Repeat("COPY tenants FROM stdin;\n", 1000))

	inputPath := filepath.Join(t.TempDir(), "schema.sql.gz")
	require.NoError(t, os.WriteFile(inputPath, content, 0o644))

	encryptedPath, err := em.EncryptFile(inputPath)
	require.NoError(t, err)
	assert.Equal(t, inputPath+".enc", encryptedPath)

	// The plaintext input is removed after successful encryption.
	_, statErr := os.Stat(inputPath)
	assert.True(t, os.IsNotExist(statErr))

	encrypted, err := os.ReadFile(encryptedPath)
	require.NoError(t, err)
	assert.NotContains(t, string(encrypted), "COPY tenants")

	restoredPath := filepath.Join(t.TempDir(), "restored.gz")
	require.NoError(t, em.DecryptFile(encryptedPath, restoredPath))

	restored, err := os.ReadFile(restoredPath)
	require.NoError(t, err)
	assert.Equal(t, content, restored)
}

func TestEncryptFileLargerThanChunkSize(t *testing.T) {
	em := newTestEncryptionManager("chunked stream key")
	content := make([]byte, encryptionChunkSize*2+1234)
	for i := range content {
		content[i] = byte(i % 251)
	}

	inputPath := filepath.Join(t.TempDir(), "artifact.bin")
	require.NoError(t, os.WriteFile(inputPath, content, 0o644))

	encryptedPath, err := em.EncryptFile(inputPath)
	require.NoError(t, err)

	restoredPath := filepath.Join(t.TempDir(), "restored.bin")
	require.NoError(t, em.DecryptFile(encryptedPath, restoredPath))

	restored, err := os.ReadFile(restoredPath)
	require.NoError(t, err)
	assert.Equal(t, content, restored)
}

func TestDecryptFileWrongKey(t *testing.T) {
	em := newTestEncryptionManager("original key")

	inputPath := filepath.Join(t.TempDir(), "schema.sql.gz")
	require.NoError(t, os.WriteFile(inputPath, []byte("secret dump contents"), 0o644))

	encryptedPath, err := em.EncryptFile(inputPath)
	require.NoError(t, err)

	wrongKey := newTestEncryptionManager("a different key")
	restoredPath := filepath.Join(t.TempDir(), "restored.gz")
	err = wrongKey.DecryptFile(encryptedPath, restoredPath)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeEncryption))
}

func TestEncryptFileMissingKey(t *testing.T) {
	em := NewEncryptionManager(&EncryptionConfig{
		Enabled:   true,
		KeyEnvVar: "PG_TENANT_BACKUP_TEST_MISSING_KEY",
	})

	inputPath := filepath.Join(t.TempDir(), "schema.sql.gz")
	require.NoError(t, os.WriteFile(inputPath, []byte("dump"), 0o644))

	_, err := em.EncryptFile(inputPath)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeEncryption))
}
