package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/tasks"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// TitleCase turns a mood key like "sad-girl" into "Sad-Girl".
func TitleCase(s string) string {
	return titleCaser.String(s)
}

// RenderRecommendation renders a curated playlist for terminal output.
func RenderRecommendation(rec *models.Recommendation) string {
	var b strings.Builder

	b.WriteString(styles.title.Render(TitleCase(rec.Mood)))
	b.WriteString("\n")

	row := func(label, value string) {
		fmt.Fprintf(&b, "%s%s\n", styles.label.Render(label), value)
	}
	row("Genres", strings.Join(rec.Genres, ", "))
	row("Seed", fmt.Sprint(rec.Seed))
	row("Tracks", fmt.Sprint(rec.Count))
	row("Unique artists", fmt.Sprint(rec.Metrics.UniqueArtists))
	row("Duplicate rate", fmt.Sprintf("%.2f", rec.Metrics.DupRate))
	b.WriteString("\n")

	if len(rec.Playlist) == 0 {
		b.WriteString(styles.warn.Render("No tracks survived curation."))
		b.WriteString("\n")
	}
	for i, t := range rec.Playlist {
		line := fmt.Sprintf("%2d. %s - %s", i+1, t.Artist, t.Title)
		if t.Genre != "" {
			line += " " + styles.help.Render("["+t.Genre+"]")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if rec.TraceURL != "" {
		b.WriteString("\n")
		b.WriteString(styles.help.Render("trace: " + rec.TraceURL))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderProgress renders a single progress update as one line.
func RenderProgress(u tasks.ProgressUpdate) string {
	switch u.Phase {
	case tasks.Complete, tasks.PersistRun:
		return styles.ok.Render("✓ ") + u.Message
	case tasks.BatchCurate:
		if strings.Contains(u.Message, "✗") {
			return styles.err.Render(u.Message)
		}
		return u.Message
	default:
		return styles.help.Render(u.Message)
	}
}

// RenderError renders an error line.
func RenderError(err error) string {
	return styles.err.Render(fmt.Sprintf("Error: %v", err))
}
