package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	encryptionSaltSize  = 16
	encryptionChunkSize = 1 << 20 // 1 MiB plaintext per sealed chunk
	pbkdf2Iterations    = 100000
)

// EncryptionManager applies optional AES-256-GCM encryption to artifacts
// after compression. Files are sealed in fixed-size chunks with a
// counter-derived nonce so artifacts of any size stream through.
type EncryptionManager struct {
	config *EncryptionConfig
}

// NewEncryptionManager creates a new encryption manager
func NewEncryptionManager(config *EncryptionConfig) *EncryptionManager {
	return &EncryptionManager{config: config}
}

// Enabled reports whether artifact encryption is configured
func (em *EncryptionManager) Enabled() bool {
	return em.config != nil && em.config.Enabled
}

// EncryptFile encrypts inputPath into a sibling .enc file. On success the
// plaintext input is deleted; on error the partial output is discarded and
// the input left intact.
func (em *EncryptionManager) EncryptFile(inputPath string) (string, error) {
	key, err := em.config.GetEncryptionKey()
	if err != nil {
		return "", err
	}

	outputPath := inputPath + ".enc"

	in, err := os.Open(inputPath)
	if err != nil {
		return "", NewEncryptionError("failed to open artifact for encryption", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return "", NewEncryptionError("failed to create encrypted artifact", err)
	}

	if err := em.encryptStream(out, in, key); err != nil {
		out.Close()
		os.Remove(outputPath)
		return "", err
	}

	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return "", NewEncryptionError("failed to finalize encrypted artifact", err)
	}

	in.Close()
	if err := os.Remove(inputPath); err != nil {
		return "", NewEncryptionError("failed to remove plaintext artifact", err)
	}

	return outputPath, nil
}

// DecryptFile decrypts inputPath into outputPath
func (em *EncryptionManager) DecryptFile(inputPath, outputPath string) error {
	key, err := em.config.GetEncryptionKey()
	if err != nil {
		return err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return NewEncryptionError("failed to open encrypted artifact", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return NewEncryptionError("failed to create decrypted file", err)
	}

	if err := em.decryptStream(out, in, key); err != nil {
		out.Close()
		os.Remove(outputPath)
		return err
	}

	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return NewEncryptionError("failed to finalize decrypted file", err)
	}

	return nil
}

func (em *EncryptionManager) encryptStream(dst io.Writer, src io.Reader, passphrase []byte) error {
	salt := make([]byte, encryptionSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return NewEncryptionError("failed to generate salt", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return err
	}

	if _, err := dst.Write(salt); err != nil {
		return NewEncryptionError("failed to write encryption header", err)
	}

	buf := make([]byte, encryptionChunkSize)
	nonce := make([]byte, gcm.NonceSize())
	var chunk uint64

	for {
		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			binary.BigEndian.PutUint64(nonce[gcm.NonceSize()-8:], chunk)
			sealed := gcm.Seal(nil, nonce, buf[:n], nil)

			var size [4]byte
			binary.BigEndian.PutUint32(size[:], uint32(len(sealed)))
			if _, err := dst.Write(size[:]); err != nil {
				return NewEncryptionError("failed to write chunk header", err)
			}
			if _, err := dst.Write(sealed); err != nil {
				return NewEncryptionError("failed to write sealed chunk", err)
			}
			chunk++
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			return nil
		}
		if readErr != nil {
			return NewEncryptionError("failed to read plaintext", readErr)
		}
	}
}

func (em *EncryptionManager) decryptStream(dst io.Writer, src io.Reader, passphrase []byte) error {
	salt := make([]byte, encryptionSaltSize)
	if _, err := io.ReadFull(src, salt); err != nil {
		return NewEncryptionError("failed to read encryption header", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	var chunk uint64

	for {
		var size [4]byte
		if _, err := io.ReadFull(src, size[:]); err == io.EOF {
			return nil
		} else if err != nil {
			return NewEncryptionError("failed to read chunk header", err)
		}

		sealedLen := binary.BigEndian.Uint32(size[:])
		if sealedLen > encryptionChunkSize+64 {
			return NewEncryptionError(fmt.Sprintf("corrupt chunk header: %d bytes", sealedLen), nil)
		}

		sealed := make([]byte, sealedLen)
		if _, err := io.ReadFull(src, sealed); err != nil {
			return NewEncryptionError("failed to read sealed chunk", err)
		}

		binary.BigEndian.PutUint64(nonce[gcm.NonceSize()-8:], chunk)
		plain, err := gcm.Open(nil, nonce, sealed, nil)
		if err != nil {
			return NewEncryptionError("chunk authentication failed", err)
		}
		if _, err := dst.Write(plain); err != nil {
			return NewEncryptionError("failed to write plaintext", err)
		}
		chunk++
	}
}

func newGCM(passphrase, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(passphrase, salt, pbkdf2Iterations, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewEncryptionError("failed to create AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewEncryptionError("failed to create GCM", err)
	}
	return gcm, nil
}
