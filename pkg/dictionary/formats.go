package dictionary

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat represents different dictionary file formats
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatSegment            // Compiled segment
	FormatText               // Tab separated text dictionary
)

// FormatInfo contains metadata about a dictionary file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64 // Minimum expected file size in bytes
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatSegment: {
		Format:      FormatSegment,
		Description: "Compiled Suggest Segment",
		Extensions:  []string{SegmentExt},
		MinSize:     int64(len(segmentMagic) + 4), // header, maxDoc, deleted length
	},
	FormatText: {
		Format:      FormatText,
		Description: "Plain Text Dictionary",
		Extensions:  []string{".txt", ".tsv"},
		MinSize:     1,
	},
}

// ValidateFileFormat checks if a file matches the expected format
func ValidateFileFormat(filename string, expectedFormat FileFormat) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}

	formatInfo, exists := supportedFormats[expectedFormat]
	if !exists {
		return fmt.Errorf("unknown format: %v", expectedFormat)
	}

	if fileInfo.Size() < formatInfo.MinSize {
		return fmt.Errorf("file %s is too small (%d bytes) for format %s (minimum: %d bytes)",
			filename, fileInfo.Size(), formatInfo.Description, formatInfo.MinSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	validExt := false
	for _, validExtension := range formatInfo.Extensions {
		if ext == validExtension {
			validExt = true
			break
		}
	}
	if !validExt {
		return fmt.Errorf("file %s has invalid extension %s for format %s (expected: %v)",
			filename, ext, formatInfo.Description, formatInfo.Extensions)
	}

	switch expectedFormat {
	case FormatSegment:
		return validateSegmentHeader(filename)
	case FormatText:
		return validateTextFormat(filename)
	}
	return nil
}

// validateSegmentHeader checks the magic and version without reading the whole file
func validateSegmentHeader(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	header := make([]byte, len(segmentMagic)+1)
	if _, err := io.ReadFull(file, header); err != nil {
		return fmt.Errorf("failed to read header from %s: %w", filename, err)
	}
	if string(header[:len(segmentMagic)]) != segmentMagic {
		return fmt.Errorf("%w: %s has no segment header", ErrInvalidSegment, filename)
	}
	if v := header[len(segmentMagic)]; v != segmentVersion {
		return fmt.Errorf("%w: %s has version %d, want %d", ErrInvalidSegment, filename, v, segmentVersion)
	}

	log.Debugf("Segment file %s validated", filename)
	return nil
}

// validateTextFormat validates text dictionary files
func validateTextFormat(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	buffer := make([]byte, 1024)
	n, err := file.Read(buffer)
	if err != nil {
		return fmt.Errorf("failed to read from text file %s: %w", filename, err)
	}
	if strings.HasPrefix(string(buffer[:n]), segmentMagic) {
		return fmt.Errorf("file %s is a compiled segment, not text", filename)
	}

	log.Debugf("Text file %s validated", filename)
	return nil
}

// DetectFileFormat attempts to detect the format of a file
func DetectFileFormat(filename string) (FileFormat, error) {
	for _, format := range []FileFormat{FormatSegment, FormatText} {
		if err := ValidateFileFormat(filename, format); err == nil {
			return format, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unable to detect format for file %s", filename)
}

// GetFormatInfo returns information about a specific format
func GetFormatInfo(format FileFormat) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}

// ListSegmentFiles returns the segment files in dir, sorted by name.
func ListSegmentFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+SegmentExt))
	if err != nil {
		return nil, fmt.Errorf("failed to scan for segment files: %w", err)
	}
	// Glob sorts its matches.
	return files, nil
}

// Load reads a dictionary file of either format and returns it as a segment file.
func Load(path string) (*SegmentFile, error) {
	format, err := DetectFileFormat(path)
	if err != nil {
		return nil, err
	}
	if info, ok := GetFormatInfo(format); ok {
		log.Debugf("Loading %s as %s", path, info.Description)
	}
	if format == FormatSegment {
		return ReadSegmentFile(path)
	}
	entries, err := ReadTextFile(path)
	if err != nil {
		return nil, err
	}
	b, err := BuildFromEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Compile(b)
}
