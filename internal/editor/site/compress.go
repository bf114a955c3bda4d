package site

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/snappy"
	"github.com/pierrec/lz4/v4"

	"github.com/edgecomet/seoeditor/pkg/types"
)

// ErrDecompression is returned when a compressed backup cannot be decoded
var ErrDecompression = errors.New("decompression failed")

// Compress encodes content with algorithm and returns the extension to append to
// the backup name. Content below types.CompressionMinSize, "none" and unknown
// algorithms are returned unchanged with an empty extension.
func Compress(content []byte, algorithm string) ([]byte, string, error) {
	if len(content) < types.CompressionMinSize {
		return content, "", nil
	}

	switch algorithm {
	case types.CompressionSnappy:
		return snappy.Encode(nil, content), types.ExtSnappy, nil

	case types.CompressionLZ4:
		// stream format, so the decoded size travels with the data
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(content); err != nil {
			_ = w.Close()
			return nil, "", fmt.Errorf("lz4 compression failed: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("lz4 compression close failed: %w", err)
		}
		return buf.Bytes(), types.ExtLZ4, nil

	default:
		return content, "", nil
	}
}

// Decompress decodes content according to the extension of filePath
func Decompress(content []byte, filePath string) ([]byte, error) {
	switch DetectAlgorithmFromPath(filePath) {
	case types.CompressionSnappy:
		decoded, err := snappy.Decode(nil, content)
		if err != nil {
			return nil, fmt.Errorf("%w: snappy: %v", ErrDecompression, err)
		}
		return decoded, nil

	case types.CompressionLZ4:
		decoded, err := io.ReadAll(lz4.NewReader(bytes.NewReader(content)))
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrDecompression, err)
		}
		return decoded, nil

	default:
		return content, nil
	}
}

// DetectAlgorithmFromPath maps a backup file name to its compression algorithm
func DetectAlgorithmFromPath(filePath string) string {
	switch {
	case strings.HasSuffix(filePath, types.ExtSnappy):
		return types.CompressionSnappy
	case strings.HasSuffix(filePath, types.ExtLZ4):
		return types.CompressionLZ4
	default:
		return types.CompressionNone
	}
}

// backupVariants lists every name a backup of pagePath may have on disk
func backupVariants(pagePath string) []string {
	base := pagePath + types.BackupSuffix
	return []string{base, base + types.ExtSnappy, base + types.ExtLZ4}
}
