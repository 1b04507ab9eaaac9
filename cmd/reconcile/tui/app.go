package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/reconcile/pkg/reconcile/catalog"
	"github.com/jamesainslie/reconcile/pkg/reconcile/compare"
	"github.com/jamesainslie/reconcile/pkg/reconcile/plan"
	"github.com/jamesainslie/reconcile/pkg/reconcile/store"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// AppState represents the current state of the application.
type AppState int

const (
	StateCataloging AppState = iota
	StatePicking
	StateConfirm
)

// Options configures the interactive session.
type Options struct {
	Store       *store.Store
	RootA       string
	RootB       string
	Catalog     catalog.Options
	AcrossTrees bool
	Version     string
}

// Result is what the session produced. When Aborted is set the caller
// must not plan anything; otherwise Diff, Builds, and Decisions feed the
// normal planning pipeline.
type Result struct {
	Aborted   bool
	Diff      *compare.Diff
	Builds    []types.BuildResult
	Decisions map[string]plan.Decision
}

// Model is the main Bubble Tea model for the reconcile TUI.
type Model struct {
	state        AppState
	catalogModel CatalogModel
	pickerModel  PickerModel
	options      Options

	// Cataloging state
	ctx          context.Context
	cancel       context.CancelFunc
	catalogDone  bool
	catalogErr   error
	builds       []types.BuildResult
	diff         *compare.Diff
	progressChan chan types.Progress

	// Confirmation dialog state
	confirmFocused int // 0 = back, 1 = write

	aborted bool

	// Window dimensions
	width  int
	height int
}

// NewModel creates a new TUI model with the given options.
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:          StateCataloging,
		catalogModel:   NewCatalogModel(opts.RootA, opts.RootB, opts.Version),
		options:        opts,
		ctx:            ctx,
		cancel:         cancel,
		width:          80,
		height:         24,
		confirmFocused: 1,
		progressChan:   make(chan types.Progress, 100),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.catalogModel.Init(),
		m.startCatalog(),
		m.listenForProgress(),
		m.tickUI(),
	)
}

// tickUIMsg triggers a UI refresh.
type tickUIMsg struct{}

// tickUI returns a command that periodically triggers UI updates.
func (m Model) tickUI() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return tickUIMsg{}
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.catalogModel.width = msg.Width
		m.catalogModel.height = msg.Height
		m.pickerModel.SetDimensions(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickUIMsg:
		// Keep UI refreshing while cataloging
		if m.state == StateCataloging && !m.catalogDone {
			return m, m.tickUI()
		}
		return m, nil

	case ProgressMsg:
		m.catalogModel.SetProgress(types.Progress(msg))
		// Keep listening for more progress
		return m, m.listenForProgress()

	case CatalogCompleteMsg:
		m.catalogDone = true
		m.catalogErr = msg.Err
		m.catalogModel.SetDone(msg.Err)

		if msg.Err == nil {
			m.builds = msg.Builds
			m.diff = msg.Diff
			m.state = StatePicking
			m.pickerModel = NewPickerModel(msg.Groups)
			m.pickerModel.SetDimensions(m.width, m.height)
		}
		return m, nil

	case spinner.TickMsg:
		if m.state == StateCataloging {
			var cmd tea.Cmd
			m.catalogModel.spinner, cmd = m.catalogModel.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	switch key {
	case "ctrl+c":
		m.aborted = true
		m.cancel()
		return m, tea.Quit
	}

	// State-specific keys
	switch m.state {
	case StateCataloging:
		if key == "q" || key == "esc" {
			m.aborted = true
			m.cancel()
			return m, tea.Quit
		}

	case StatePicking:
		switch key {
		case "q", "esc":
			m.aborted = true
			return m, tea.Quit
		case "enter", "a", "n", "s":
			if m.pickerModel.Empty() {
				if key == "enter" {
					return m, tea.Quit
				}
				return m, nil
			}
			m.pickerModel.HandleKey(key)
			if m.pickerModel.Done() {
				m.state = StateConfirm
			}
		default:
			m.pickerModel.HandleKey(key)
		}

	case StateConfirm:
		switch key {
		case "q", "esc":
			m.pickerModel.Back()
			m.state = StatePicking
		case "left", "h":
			m.confirmFocused = 0
		case "right", "l":
			m.confirmFocused = 1
		case "tab":
			m.confirmFocused = (m.confirmFocused + 1) % 2
		case "enter":
			if m.confirmFocused == 1 {
				return m, tea.Quit
			}
			m.pickerModel.Back()
			m.state = StatePicking
		case "y":
			// Shortcut for yes
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case StateCataloging:
		return m.catalogModel.View()
	case StatePicking:
		return m.pickerModel.View()
	case StateConfirm:
		return m.renderConfirmDialog()
	}
	return ""
}

// renderConfirmDialog renders the closing confirmation dialog.
func (m Model) renderConfirmDialog() string {
	decided := m.pickerModel.DecidedCount()
	total := m.pickerModel.GroupCount()

	var content strings.Builder
	content.WriteString(dialogTitleStyle.Render("Plan deduplication"))
	content.WriteString("\n\n")
	content.WriteString(dialogTextStyle.Render(
		fmt.Sprintf("%d of %d groups decided.", decided, total)))
	content.WriteString("\n")
	content.WriteString(dialogTextStyle.Render("Skipped groups keep their default member."))
	content.WriteString("\n\n")

	// Buttons
	backBtn := inactiveButtonStyle.Render("Back")
	writeBtn := inactiveButtonStyle.Render("Write plan")

	if m.confirmFocused == 0 {
		backBtn = activeButtonStyle.Render("Back")
	} else {
		writeBtn = activeButtonStyle.Render("Write plan")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Center, backBtn, "  ", writeBtn)
	content.WriteString(center(buttons, 46))

	dialog := dialogBoxStyle.Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}

// startCatalog builds both catalogs, compares them, and gathers the
// duplicate groups, all inside one command.
func (m Model) startCatalog() tea.Cmd {
	progressChan := m.progressChan
	return func() tea.Msg {
		startTime := time.Now()

		opts := m.options.Catalog
		opts.OnProgress = func(p types.Progress) {
			select {
			case progressChan <- p:
			default:
				// Channel full, skip this update
			}
		}

		resA, err := catalog.New(m.options.Store, opts).Build(m.ctx, types.TreeA, m.options.RootA)
		if err != nil {
			close(progressChan)
			return CatalogCompleteMsg{Err: err}
		}
		resB, err := catalog.New(m.options.Store, opts).Build(m.ctx, types.TreeB, m.options.RootB)
		if err != nil {
			close(progressChan)
			return CatalogCompleteMsg{Err: err}
		}

		// Close progress channel when cataloging completes
		close(progressChan)

		recsA, err := m.options.Store.GetAll(types.TreeA)
		if err != nil {
			return CatalogCompleteMsg{Err: err}
		}
		recsB, err := m.options.Store.GetAll(types.TreeB)
		if err != nil {
			return CatalogCompleteMsg{Err: err}
		}

		diff := compare.Compare(recsA, recsB)
		groups := plan.DedupGroups(diff, m.options.AcrossTrees)

		return CatalogCompleteMsg{
			Builds:  []types.BuildResult{*resA, *resB},
			Diff:    diff,
			Groups:  groups,
			Elapsed: time.Since(startTime),
		}
	}
}

// listenForProgress returns a command that waits for progress updates.
func (m Model) listenForProgress() tea.Cmd {
	progressChan := m.progressChan
	return func() tea.Msg {
		p, ok := <-progressChan
		if !ok {
			// Channel closed, cataloging is done
			return nil
		}
		return ProgressMsg(p)
	}
}

// Run starts the interactive session and reports what the user chose.
func Run(opts Options) (*Result, error) {
	model := NewModel(opts)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}

	if m.aborted || errors.Is(m.catalogErr, context.Canceled) {
		return &Result{Aborted: true}, nil
	}
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	if m.diff == nil {
		// Quit before cataloging finished
		return &Result{Aborted: true}, nil
	}

	return &Result{
		Diff:      m.diff,
		Builds:    m.builds,
		Decisions: m.pickerModel.Decisions(),
	}, nil
}
