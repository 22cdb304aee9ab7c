package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/moodmix/internal/models"
)

var (
	_ list.Item = moodItem{}
	_ list.Item = trackItem{}
)

// moodItem wraps a preset key and its seed genres to implement [list.Item].
type moodItem struct {
	key    string
	genres []string
}

func (i moodItem) FilterValue() string { return i.key }
func (i moodItem) Title() string       { return TitleCase(i.key) }
func (i moodItem) Description() string { return strings.Join(i.genres, " • ") }

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	position int
	track    models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return fmt.Sprintf("%d. %s", i.position, i.track.Title) }
func (i trackItem) Description() string {
	desc := i.track.Artist
	if i.track.Genre != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Genre)
	}
	return desc
}
