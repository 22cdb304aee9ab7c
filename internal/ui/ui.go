package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodmix/internal/pipeline"
	"github.com/desertthunder/moodmix/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	MoodListView ViewState = iota
	CurateView
	TrackListView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.CurationEngine
	cfg          pipeline.Config
	width        int
	height       int
	moodList     list.Model
	trackList    list.Model
	mood         string
	variant      int
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	result       *tasks.CurateResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. cfg supplies the seed, size and budgets for every run;
// its Variant is the starting variant and is bumped on each re-roll.
func NewModel(ctx context.Context, engine *tasks.CurationEngine, cfg pipeline.Config) *Model {
	presets := engine.Resolver().Presets()
	items := make([]list.Item, 0, len(presets))
	for _, k := range presets.Keys() {
		items = append(items, moodItem{key: k, genres: presets[k].SeedGenres})
	}

	moods := list.New(items, list.NewDefaultDelegate(), 0, 0)
	moods.Title = "Moods"

	return &Model{
		ctx:       ctx,
		view:      MoodListView,
		engine:    engine,
		cfg:       cfg,
		moodList:  moods,
		trackList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		variant:   cfg.Variant,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init implements [tea.Model]. The mood list is built up front, so there is nothing to fetch.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.moodList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case MoodListView:
			return m.handleMoodListKeys(msg)
		case CurateView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case TrackListView:
			return m.handleTrackListKeys(msg)
		}

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.progress = msg.data.(tasks.ProgressUpdate)
			return m, m.waitForProgress()
		case MsgCurateComplete:
			done := msg.data.(curateComplete)
			m.progressChan = nil
			m.doneChan = nil
			m.result = done.result
			m.err = done.err
			if done.err != nil {
				m.view = MoodListView
				return m, nil
			}
			m.setTracks()
			m.view = TrackListView
			return m, nil
		}
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case MoodListView:
		return m.renderMoodList()
	case CurateView:
		return m.renderCurate()
	case TrackListView:
		return m.renderTrackList()
	default:
		return ""
	}
}

// Variant returns the variant the next run will use.
func (m *Model) Variant() int {
	return m.variant
}

// Result returns the most recent run, if any.
func (m *Model) Result() *tasks.CurateResult {
	return m.result
}

func (m *Model) handleMoodListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moodList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.moodList, cmd = m.moodList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.moodList.SelectedItem().(moodItem); ok {
			m.mood = item.key
			m.variant = m.cfg.Variant
			return m, m.startCurate()
		}
	}

	var cmd tea.Cmd
	m.moodList, cmd = m.moodList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = MoodListView
		m.err = nil
		return m, nil
	case key.Matches(msg, m.keys.reroll):
		m.variant++
		return m, m.startCurate()
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case MoodListView:
		m.moodList, cmd = m.moodList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) setTracks() {
	rec := m.result.Recommendation
	items := make([]list.Item, len(rec.Playlist))
	for i, t := range rec.Playlist {
		items[i] = trackItem{position: i + 1, track: t}
	}
	m.trackList.SetItems(items)
	m.trackList.Title = fmt.Sprintf("%s · variant %d", TitleCase(rec.Mood), m.variant)
	m.trackList.ResetSelected()
}

// startCurate runs the engine in the background; progress and the final result come back as messages.
func (m *Model) startCurate() tea.Cmd {
	cfg := m.cfg
	cfg.Variant = m.variant
	mood := m.mood

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.doneChan = done
	m.progress = tasks.ProgressUpdate{Message: fmt.Sprintf("Curating %s...", mood)}
	m.err = nil
	m.view = CurateView

	go func() {
		result, err := m.engine.Curate(m.ctx, mood, cfg, progress)
		done <- curateCompleteMsg(result, err)
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderMoodList() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
	out := fmt.Sprintf("%s\n\n%s", m.moodList.View(), helpView)
	if m.err != nil {
		out = fmt.Sprintf("%s\n\n%s", RenderError(m.err), out)
	}
	return out
}

func (m *Model) renderCurate() string {
	title := styles.title.Render(fmt.Sprintf("Curating %s", TitleCase(m.mood)))
	return fmt.Sprintf("%s\n\n%s", title, RenderProgress(m.progress))
}

func (m *Model) renderTrackList() string {
	rec := m.result.Recommendation
	summary := styles.help.Render(fmt.Sprintf(
		"seed %d · %d unique artists · dup rate %.2f · trace %s",
		rec.Seed, rec.Metrics.UniqueArtists, rec.Metrics.DupRate, m.result.TracePath,
	))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.reroll, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", m.trackList.View(), summary, helpView)
}
