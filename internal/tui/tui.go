// Package tui provides the interactive ticket dashboard using Bubble Tea.
//
// Every store mutation happens inside Update. Websocket frames, command
// results, and key presses each arrive as discrete messages and are
// applied one at a time, so the reconciliation engine never runs
// concurrently with a render.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tickwatch/tickwatch/internal/api"
	"github.com/tickwatch/tickwatch/internal/auth"
	"github.com/tickwatch/tickwatch/internal/model"
	"github.com/tickwatch/tickwatch/internal/reconcile"
	"github.com/tickwatch/tickwatch/internal/store"
	"github.com/tickwatch/tickwatch/internal/ws"
)

// ViewMode represents the current view state.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// InputMode represents what kind of text input is active.
type InputMode int

const (
	InputNone InputMode = iota
	InputSearch
)

// Status icons
const (
	iconNotStarted = "○"
	iconInProgress = "◐"
	iconCompleted  = "●"
	iconReview     = "◉"
)

// Layout constants
const (
	minSplitWidth = 80 // Minimum terminal width for split view
)

// commandTimeout bounds every REST call issued from the dashboard.
const commandTimeout = 15 * time.Second

// FocusPane represents which pane is focused in split view.
type FocusPane int

const (
	FocusList FocusPane = iota
	FocusDetail
)

// Model is the main Bubble Tea model for the dashboard.
type Model struct {
	session auth.Session
	store   *store.Store
	engine  *reconcile.Engine
	client  *api.Client
	conn    *ws.Conn

	tickets  []model.Ticket // store contents, refreshed after each mutation
	filtered []model.Ticket // tickets after filtering
	cursor   int
	viewMode ViewMode

	// Selection follows an id, not an index, so it survives snapshot
	// replaces and filter changes. selectedRev tracks the store revision
	// of the selected record to detect content changes under the cursor.
	selectedID  string
	selectedRev uint64

	connState ws.State

	// Filter state
	filterStatuses map[model.Status]bool
	filterSearch   string
	filterReview   bool // only tickets waiting for review

	// Input state
	inputMode  InputMode
	inputText  string
	inputLabel string

	// UI state
	width  int
	height int
	err    error
	status string // transient status line
	alert  string // blocking banner, dismissed by the next key press
	busy   bool   // a command is in flight

	// Split view state
	focusPane    FocusPane
	detailScroll int
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	statusColors = map[model.Status]lipgloss.Color{
		model.StatusNotStarted: lipgloss.Color("252"),
		model.StatusInProgress: lipgloss.Color("214"),
		model.StatusCompleted:  lipgloss.Color("42"),
	}

	priorityColors = map[model.Priority]lipgloss.Color{
		model.PriorityLow:    lipgloss.Color("245"),
		model.PriorityMedium: lipgloss.Color("39"),
		model.PriorityHigh:   lipgloss.Color("208"),
		model.PriorityUrgent: lipgloss.Color("196"),
	}

	stageColors = map[model.StageView]lipgloss.Color{
		model.ViewPending:   lipgloss.Color("240"),
		model.ViewActive:    lipgloss.Color("33"),
		model.ViewCompleted: lipgloss.Color("42"),
		model.ViewError:     lipgloss.Color("196"),
	}

	connColors = map[ws.State]lipgloss.Color{
		ws.StateConnecting:   lipgloss.Color("226"),
		ws.StateConnected:    lipgloss.Color("42"),
		ws.StateDisconnected: lipgloss.Color("196"),
	}

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	filterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("124")).
			Padding(0, 1)

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	reviewBannerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("232")).
				Background(lipgloss.Color("226")).
				Padding(0, 1)

	doneBannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("232")).
			Background(lipgloss.Color("42")).
			Padding(0, 1)

	// Content area padding
	contentPadding = 2
)

func statusIcon(t model.Ticket) string {
	if t.WaitingForReview {
		return iconReview
	}
	switch t.Status {
	case model.StatusNotStarted:
		return iconNotStarted
	case model.StatusInProgress:
		return iconInProgress
	case model.StatusCompleted:
		return iconCompleted
	default:
		return "?"
	}
}

// New creates a new dashboard model. The websocket loop must already be
// running; the model only drains its messages.
func New(sess auth.Session, s *store.Store, engine *reconcile.Engine, client *api.Client, conn *ws.Conn, selected string) Model {
	statuses := map[model.Status]bool{
		model.StatusNotStarted: true,
		model.StatusInProgress: true,
		model.StatusCompleted:  true,
	}
	return Model{
		session:        sess,
		store:          s,
		engine:         engine,
		client:         client,
		conn:           conn,
		selectedID:     selected,
		connState:      ws.StateConnecting,
		viewMode:       ViewList,
		filterStatuses: statuses,
	}
}

// Messages
type connMsg struct {
	msg ws.Msg
}

type connClosedMsg struct{}

type fetchMsg struct {
	tickets []model.Ticket
	err     error
}

type fetchOneMsg struct {
	ticket model.Ticket
	err    error
}

type actionMsg struct {
	message string
	err     error
}

// waitForConn blocks on the connection channel and resurfaces the next
// notification as a Bubble Tea message. Update re-arms it after every
// delivery.
func (m Model) waitForConn() tea.Cmd {
	conn := m.conn
	return func() tea.Msg {
		msg, ok := <-conn.Messages()
		if !ok {
			return connClosedMsg{}
		}
		return connMsg{msg: msg}
	}
}

// fetchAll pulls the full collection over REST. The result flows through
// the same snapshot path push events use.
func (m Model) fetchAll() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		tickets, err := client.FetchAll(ctx)
		return fetchMsg{tickets: tickets, err: err}
	}
}

// applyFilters filters tickets based on current filter state.
func (m *Model) applyFilters() {
	m.filtered = nil
	for _, t := range m.tickets {
		if !m.filterStatuses[t.Status] {
			continue
		}
		if m.filterReview && !t.WaitingForReview {
			continue
		}
		if m.filterSearch != "" {
			search := strings.ToLower(m.filterSearch)
			if !strings.Contains(strings.ToLower(t.Title), search) &&
				!strings.Contains(strings.ToLower(t.ID), search) &&
				!strings.Contains(strings.ToLower(t.Customer), search) {
				continue
			}
		}
		m.filtered = append(m.filtered, t)
	}
	// The cursor tracks the selected id when it is still visible,
	// otherwise it clamps to the shrunken list.
	if m.selectedID != "" {
		for i, t := range m.filtered {
			if t.ID == m.selectedID {
				m.cursor = i
				return
			}
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// refresh re-reads the store and reapplies filters. When the selected
// record itself changed, the detail pane snaps back to the top so the new
// stage state is visible.
func (m *Model) refresh() {
	m.tickets = m.store.List()
	m.applyFilters()
	if m.selectedID == "" {
		return
	}
	if rev := m.store.Rev(m.selectedID); rev != m.selectedRev {
		m.selectedRev = rev
		m.detailScroll = 0
	}
}

// selected returns the ticket under the cursor.
func (m Model) selected() (model.Ticket, bool) {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return model.Ticket{}, false
	}
	return m.filtered[m.cursor], true
}

// bindSelection keeps the selected id in step with the cursor.
func (m *Model) bindSelection() {
	if t, ok := m.selected(); ok {
		m.selectedID = t.ID
		m.selectedRev = m.store.Rev(t.ID)
	} else {
		m.selectedID = ""
		m.selectedRev = 0
	}
}

// fetchTicket pulls one record, for the startup deep link. The result
// merges through the engine's single-record path.
func (m Model) fetchTicket(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		t, err := client.FetchTicket(ctx, id)
		return fetchOneMsg{ticket: t, err: err}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.fetchAll(), m.waitForConn()}
	if m.selectedID != "" {
		cmds = append(cmds, m.fetchTicket(m.selectedID))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// A blocking alert eats the next key press.
		if m.alert != "" {
			m.alert = ""
			return m, nil
		}
		m.err = nil
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Narrow modal → wide: close modal, show split view
		if m.viewMode == ViewDetail && m.width >= minSplitWidth {
			m.viewMode = ViewList
		}
		return m, nil

	case connMsg:
		return m.handleConn(msg.msg)

	case connClosedMsg:
		// The connection loop only exits on teardown.
		return m, nil

	case fetchMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		if m.engine.ApplySnapshot(msg.tickets) {
			m.refresh()
			m.status = fmt.Sprintf("Loaded %d tickets", m.store.Len())
		} else {
			m.status = "Server returned no tickets, keeping current view"
		}
		return m, nil

	case fetchOneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if res := m.engine.Upsert(msg.ticket); len(res.Touched) > 0 {
			m.refresh()
		}
		return m, nil

	case actionMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
		} else if msg.message != "" {
			m.status = msg.message
		}
		return m, nil
	}

	return m, nil
}

// handleConn applies one connection notification, then re-arms the wait.
func (m Model) handleConn(msg ws.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ws.StateMsg:
		m.connState = msg.State
		if msg.Detail != "" {
			m.status = msg.Detail
		}

	case ws.EventMsg:
		res := m.engine.Apply(msg.Event)
		if res.Status != "" {
			m.status = res.Status
		}
		if res.Alert != "" {
			m.alert = res.Alert
		}
		if res.Snapshot || len(res.Touched) > 0 {
			m.refresh()
		}
	}
	return m, m.waitForConn()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle input mode first
	if m.inputMode != InputNone {
		return m.handleInputKey(msg)
	}

	switch m.viewMode {
	case ViewList:
		return m.handleListKey(msg)
	case ViewDetail:
		return m.handleDetailKey(msg)
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.inputMode = InputNone
		m.inputText = ""
		m.filterSearch = ""
		m.applyFilters()
		return m, nil

	case "enter":
		m.filterSearch = m.inputText
		m.inputMode = InputNone
		m.inputText = ""
		m.applyFilters()
		return m, nil

	case "backspace":
		if len(m.inputText) > 0 {
			m.inputText = m.inputText[:len(m.inputText)-1]
			m.filterSearch = m.inputText
			m.applyFilters()
		}

	default:
		// Add character if printable
		if len(msg.String()) == 1 {
			m.inputText += msg.String()
			m.filterSearch = m.inputText
			m.applyFilters()
		}
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// In split view with detail focused, handle detail-specific navigation
	if m.width >= minSplitWidth && m.focusPane == FocusDetail {
		return m.handleDetailPaneKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		// Toggle focus between list and detail panes (only in split view)
		if m.width >= minSplitWidth {
			if m.focusPane == FocusList {
				m.focusPane = FocusDetail
			} else {
				m.focusPane = FocusList
			}
		}
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.detailScroll = 0
			m.bindSelection()
		}

	case "down", "j":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			m.detailScroll = 0
			m.bindSelection()
		}

	case "g", "home":
		m.cursor = 0
		m.detailScroll = 0
		m.bindSelection()

	case "G", "end":
		m.cursor = max(0, len(m.filtered)-1)
		m.detailScroll = 0
		m.bindSelection()

	case "enter", "l":
		// Narrow: open full-screen detail. Split: focus the detail pane.
		if m.width < minSplitWidth && len(m.filtered) > 0 {
			m.viewMode = ViewDetail
			m.bindSelection()
		} else if m.width >= minSplitWidth {
			m.focusPane = FocusDetail
		}

	// Actions
	case "s", "r":
		return m.doProcess()
	case "a":
		return m.doApprove()

	// Manual pull
	case "f":
		m.status = "Fetching tickets..."
		return m, m.fetchAll()

	// Filtering
	case "/":
		m.inputMode = InputSearch
		m.inputLabel = "Search: "
		m.inputText = ""
	case "1":
		m.filterStatuses[model.StatusNotStarted] = !m.filterStatuses[model.StatusNotStarted]
		m.applyFilters()
	case "2":
		m.filterStatuses[model.StatusInProgress] = !m.filterStatuses[model.StatusInProgress]
		m.applyFilters()
	case "3":
		m.filterStatuses[model.StatusCompleted] = !m.filterStatuses[model.StatusCompleted]
		m.applyFilters()
	case "w":
		m.filterReview = !m.filterReview
		m.applyFilters()
	case "0":
		// Show all
		for s := range m.filterStatuses {
			m.filterStatuses[s] = true
		}
		m.filterReview = false
		m.applyFilters()

	case "esc":
		// If filters are set, clear them; otherwise quit
		if m.filterSearch != "" || m.filterReview {
			m.filterSearch = ""
			m.filterReview = false
			m.applyFilters()
		} else {
			return m, tea.Quit
		}
	}

	return m, nil
}

// handleDetailPaneKey handles keys when detail pane is focused in split view.
func (m Model) handleDetailPaneKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab", "esc", "h":
		// Return focus to list
		m.focusPane = FocusList
		return m, nil

	case "up", "k":
		if m.detailScroll > 0 {
			m.detailScroll--
		}

	case "down", "j":
		// Bounded by content in the render
		m.detailScroll++

	case "g", "home":
		m.detailScroll = 0

	case "G", "end":
		m.detailScroll = 9999

	// Actions still work when detail is focused
	case "s", "r":
		return m.doProcess()
	case "a":
		return m.doApprove()
	case "f":
		m.status = "Fetching tickets..."
		return m, m.fetchAll()
	}

	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "esc", "h", "backspace":
		m.viewMode = ViewList

	// Actions work in detail view too
	case "s", "r":
		return m.doProcess()
	case "a":
		return m.doApprove()
	case "f":
		m.status = "Fetching tickets..."
		return m, m.fetchAll()
	}

	return m, nil
}

// doProcess dispatches start/resume for the selected ticket. Both map to
// the same backend call; the derived action only gates which tickets
// accept the key.
func (m Model) doProcess() (Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok || m.busy {
		return m, nil
	}
	switch model.NextAction(t) {
	case model.ActionStart, model.ActionResume:
	default:
		m.status = "Ticket cannot be processed right now"
		return m, nil
	}

	m.busy = true
	m.status = fmt.Sprintf("Processing %s...", t.ID)
	client := m.client
	id := t.ID
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		message, err := client.Process(ctx, id)
		if err != nil {
			return actionMsg{err: fmt.Errorf("process %s: %w", id, err)}
		}
		if message == "" {
			message = fmt.Sprintf("Processing started for %s", id)
		}
		return actionMsg{message: message}
	}
}

// doApprove dispatches review approval for the selected ticket.
func (m Model) doApprove() (Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok || m.busy {
		return m, nil
	}
	if model.NextAction(t) != model.ActionApprove {
		m.status = "Ticket is not waiting for review"
		return m, nil
	}

	m.busy = true
	m.status = fmt.Sprintf("Approving review for %s...", t.ID)
	client := m.client
	id := t.ID
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		message, err := client.ApproveReview(ctx, id)
		if err != nil {
			return actionMsg{err: fmt.Errorf("approve %s: %w", id, err)}
		}
		if message == "" {
			message = fmt.Sprintf("Review approved for %s", id)
		}
		return actionMsg{message: message}
	}
}

// Run starts the dashboard and blocks until it exits. The websocket loop
// is started here and torn down when the program returns.
func Run(sess auth.Session, s *store.Store, engine *reconcile.Engine, client *api.Client, conn *ws.Conn, selected string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	m := New(sess, s, engine, client, conn, selected)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
