package backup

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// StreamCompressor compresses between streams so multi-gigabyte dumps never
// have to fit in memory
type StreamCompressor interface {
	Compress(dst io.Writer, src io.Reader, level int) error
	Decompress(dst io.Writer, src io.Reader) error
	Algorithm() CompressionType
	Extension() string
}

// CompressionManager manages the registered streaming compressors
type CompressionManager struct {
	compressors map[CompressionType]StreamCompressor
}

// NewCompressionManager creates a compression manager with all supported
// algorithms registered
func NewCompressionManager() *CompressionManager {
	cm := &CompressionManager{
		compressors: make(map[CompressionType]StreamCompressor),
	}

	cm.compressors[CompressionTypeGzip] = &GzipCompressor{}
	cm.compressors[CompressionTypeZstd] = &ZstdCompressor{}
	cm.compressors[CompressionTypeLZ4] = &LZ4Compressor{}

	return cm
}

// GetCompressor returns the compressor for the given algorithm
func (cm *CompressionManager) GetCompressor(algorithm CompressionType) (StreamCompressor, error) {
	compressor, exists := cm.compressors[algorithm]
	if !exists {
		return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
	return compressor, nil
}

// SupportedAlgorithms returns the registered algorithm identifiers
func (cm *CompressionManager) SupportedAlgorithms() []CompressionType {
	algorithms := make([]CompressionType, 0, len(cm.compressors))
	for algorithm := range cm.compressors {
		algorithms = append(algorithms, algorithm)
	}
	return algorithms
}

// CompressFile streams inputPath through the compressor into a sibling file
// with the algorithm's extension. On success the uncompressed input is
// deleted and the output path returned; on any error the partial output is
// discarded and the input left intact.
func (cm *CompressionManager) CompressFile(inputPath string, algorithm CompressionType, level int) (string, error) {
	compressor, err := cm.GetCompressor(algorithm)
	if err != nil {
		return "", err
	}

	outputPath := inputPath + compressor.Extension()

	in, err := os.Open(inputPath)
	if err != nil {
		return "", NewCompressionError("failed to open dump for compression", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return "", NewCompressionError("failed to create compressed artifact", err)
	}

	if err := compressor.Compress(out, in, level); err != nil {
		out.Close()
		os.Remove(outputPath)
		return "", NewCompressionError("compression stream failed", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return "", NewCompressionError("failed to finalize compressed artifact", err)
	}

	in.Close()
	if err := os.Remove(inputPath); err != nil {
		return "", NewCompressionError("failed to remove uncompressed dump", err)
	}

	return outputPath, nil
}

// DecompressFile streams inputPath through the decompressor into outputPath.
// Needed to stage a future restore; also keeps the lossless property testable.
func (cm *CompressionManager) DecompressFile(inputPath, outputPath string, algorithm CompressionType) error {
	compressor, err := cm.GetCompressor(algorithm)
	if err != nil {
		return err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return NewCompressionError("failed to open compressed artifact", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return NewCompressionError("failed to create decompressed file", err)
	}

	if err := compressor.Decompress(out, in); err != nil {
		out.Close()
		os.Remove(outputPath)
		return NewCompressionError("decompression stream failed", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return NewCompressionError("failed to finalize decompressed file", err)
	}

	return nil
}

// GzipCompressor implements gzip-compatible streaming compression
type GzipCompressor struct{}

func (g *GzipCompressor) Compress(dst io.Writer, src io.Reader, level int) error {
	if level < gzip.BestSpeed || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	gz, err := gzip.NewWriterLevel(dst, level)
	if err != nil {
		return err
	}
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		return err
	}
	// gzip flushes remaining data on Close
	return gz.Close()
}

func (g *GzipCompressor) Decompress(dst io.Writer, src io.Reader) error {
	gz, err := gzip.NewReader(src)
	if err != nil {
		return err
	}
	defer gz.Close()
	_, err = io.Copy(dst, gz)
	return err
}

func (g *GzipCompressor) Algorithm() CompressionType { return CompressionTypeGzip }
func (g *GzipCompressor) Extension() string          { return ".gz" }

// ZstdCompressor implements zstd streaming compression
type ZstdCompressor struct{}

func (z *ZstdCompressor) Compress(dst io.Writer, src io.Reader, level int) error {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func (z *ZstdCompressor) Decompress(dst io.Writer, src io.Reader) error {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return err
	}
	defer dec.Close()
	_, err = io.Copy(dst, dec.IOReadCloser())
	return err
}

func (z *ZstdCompressor) Algorithm() CompressionType { return CompressionTypeZstd }
func (z *ZstdCompressor) Extension() string          { return ".zst" }

// LZ4Compressor implements lz4 streaming compression
type LZ4Compressor struct{}

func (l *LZ4Compressor) Compress(dst io.Writer, src io.Reader, level int) error {
	lw := lz4.NewWriter(dst)
	if _, err := io.Copy(lw, src); err != nil {
		lw.Close()
		return err
	}
	return lw.Close()
}

func (l *LZ4Compressor) Decompress(dst io.Writer, src io.Reader) error {
	lr := lz4.NewReader(src)
	_, err := io.Copy(dst, lr)
	return err
}

func (l *LZ4Compressor) Algorithm() CompressionType { return CompressionTypeLZ4 }
func (l *LZ4Compressor) Extension() string          { return ".lz4" }
