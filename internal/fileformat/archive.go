package fileformat

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	gzipMagic     = []byte{0x1f, 0x8b}
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
)

// zipMetadataPatterns match archive entries created by operating systems
// rather than by whoever built the archive.
var zipMetadataPatterns = []string{
	"__MACOSX/**",
	"**/.DS_Store",
	"**/._*",
	"**/Thumbs.db",
	"**/desktop.ini",
}

func isZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic) || bytes.HasPrefix(data, zipEmptyMagic)
}

// GZIPStrategy decompresses a GZIP stream and normalizes its content.
type GZIPStrategy struct {
	detector Detector
	limits   Limits
}

// NewGZIPStrategy creates a GZIP strategy that recurses through detector.
func NewGZIPStrategy(detector Detector, limits Limits) *GZIPStrategy {
	return &GZIPStrategy{detector: detector, limits: limits}
}

func (s *GZIPStrategy) Format() Format { return FormatGZIP }
func (s *GZIPStrategy) Priority() int  { return PriorityGZIP }

func (s *GZIPStrategy) CanHandle(_ context.Context, data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}

func (s *GZIPStrategy) Parse(ctx context.Context, data []byte) (any, error) {
	inner, err := nested(ctx, s.limits)
	if err != nil {
		return nil, err
	}
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening GZIP stream: %w", err)
	}
	defer reader.Close()

	content, err := readLimited(reader, s.limits.MaxExpandedBytes)
	if err != nil {
		return nil, fmt.Errorf("decompressing GZIP stream: %w", err)
	}
	detection, err := s.detector.DetectAndParse(inner, content)
	if err != nil {
		return nil, err
	}
	return detection.Data, nil
}

// ZIPStrategy normalizes every entry of a ZIP archive. The result maps entry
// paths to their parsed content; directories and OS metadata are skipped.
type ZIPStrategy struct {
	detector Detector
	limits   Limits
}

// NewZIPStrategy creates a ZIP strategy that recurses through detector.
func NewZIPStrategy(detector Detector, limits Limits) *ZIPStrategy {
	return &ZIPStrategy{detector: detector, limits: limits}
}

func (s *ZIPStrategy) Format() Format { return FormatZIP }
func (s *ZIPStrategy) Priority() int  { return PriorityZIP }

func (s *ZIPStrategy) CanHandle(_ context.Context, data []byte) bool {
	return isZip(data)
}

func (s *ZIPStrategy) Parse(ctx context.Context, data []byte) (any, error) {
	inner, err := nested(ctx, s.limits)
	if err != nil {
		return nil, err
	}
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	result := make(map[string]any, len(archive.File))
	var expanded int64
	for _, file := range archive.File {
		if file.FileInfo().IsDir() || strings.HasSuffix(file.Name, "/") || isZipMetadata(file.Name) {
			continue
		}

		limit := s.limits.MaxExpandedBytes
		if limit > 0 {
			limit -= expanded
			if limit <= 0 {
				return nil, errTooLarge
			}
		}
		content, err := readZipEntry(file, limit)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file.Name, err)
		}
		expanded += int64(len(content))

		detection, err := s.detector.DetectAndParse(inner, content)
		if err != nil {
			return nil, err
		}
		result[file.Name] = detection.Data
	}
	return result, nil
}

func isZipMetadata(name string) bool {
	name = path.Clean(strings.TrimPrefix(name, "/"))
	for _, pattern := range zipMetadataPatterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func readZipEntry(file *zip.File, limit int64) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readLimited(rc, limit)
}

// zipEntries indexes the entries of a ZIP archive by name. It returns nil
// when data is not a readable archive.
func zipEntries(data []byte) map[string]*zip.File {
	if !isZip(data) {
		return nil
	}
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}
	entries := make(map[string]*zip.File, len(archive.File))
	for _, file := range archive.File {
		entries[file.Name] = file
	}
	return entries
}
