// package formatter provides functions to export curated playlists to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// Format is an export format name.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ParseFormat validates a user-supplied format name. "md" and "text" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unsupported format %q (json, csv, markdown, txt)", shared.ErrInvalidArgument, s)
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText, FormatCSV:
		return string(f)
	default:
		return "json"
	}
}

// ExportToCSV converts a Recommendation to CSV format with columns: Position, Title, Artist, Genre, Region, URL
func ExportToCSV(rec *models.Recommendation) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Title", "Artist", "Genre", "Region", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range rec.Playlist {
		record := []string{
			strconv.Itoa(i + 1),
			track.Title,
			track.Artist,
			track.Genre,
			track.RegionOrDefault(),
			track.ExternalURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Recommendation to Markdown, using the first track's artwork as the cover
func ExportToMarkdown(rec *models.Recommendation) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", rec.Mood)

	for _, t := range rec.Playlist {
		if t.ImageURL != "" {
			fmt.Fprintf(&buf, "![Cover](%s)\n\n", t.ImageURL)
			break
		}
	}

	fmt.Fprintf(&buf, "**Seed**: %d\n", rec.Seed)
	fmt.Fprintf(&buf, "**Tracks**: %d\n", rec.Count)
	fmt.Fprintf(&buf, "**Unique artists**: %d\n", rec.Metrics.UniqueArtists)
	fmt.Fprintf(&buf, "**Duplicate rate**: %.2f\n\n", rec.Metrics.DupRate)

	buf.WriteString("## Tracks\n\n")
	for i, track := range rec.Playlist {
		line := fmt.Sprintf("%s - %s", track.Artist, track.Title)
		if track.ExternalURL != "" {
			line = fmt.Sprintf("[%s](%s)", line, track.ExternalURL)
		}
		if track.Genre != "" {
			line += fmt.Sprintf(" [%s]", track.Genre)
		}
		fmt.Fprintf(&buf, "%d. %s\n", i+1, line)
	}

	if rec.TraceURL != "" {
		fmt.Fprintf(&buf, "\nTrace: %s\n", rec.TraceURL)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Recommendation to plain text format
func ExportToText(rec *models.Recommendation) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Mood: %s\n", rec.Mood)
	fmt.Fprintf(&buf, "Seed: %d\n", rec.Seed)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", rec.Count)

	for i, track := range rec.Playlist {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return buf.Bytes(), nil
}

// Export renders rec in the given format.
func Export(rec *models.Recommendation, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(rec)
	case FormatMarkdown:
		return ExportToMarkdown(rec)
	case FormatText:
		return ExportToText(rec)
	default:
		return shared.MarshalJSON(rec, true)
	}
}

// WriteExport renders rec and writes it to "{basePath}.{ext}", creating parent directories.
func WriteExport(rec *models.Recommendation, format Format, basePath string) (string, error) {
	data, err := Export(rec, format)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", format, err)
	}

	path := basePath + "." + format.Extension()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}

// PlaylistFileName is the default CLI output name for a run, without extension.
func PlaylistFileName(seed int64) string {
	return fmt.Sprintf("playlist-seed%d", seed)
}

// WriteManifest writes a batch manifest as indented JSON.
func WriteManifest(manifest any, path string) error {
	return shared.WriteJSONFile(path, manifest)
}
