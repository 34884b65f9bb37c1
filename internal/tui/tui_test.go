package tui

import (
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/tickwatch/tickwatch/internal/model"
	"github.com/tickwatch/tickwatch/internal/reconcile"
	"github.com/tickwatch/tickwatch/internal/store"
)

func newTestModel() Model {
	s := store.New()
	return Model{
		store:  s,
		engine: reconcile.New(s, zerolog.Nop()),
		filterStatuses: map[model.Status]bool{
			model.StatusNotStarted: true,
			model.StatusInProgress: true,
			model.StatusCompleted:  true,
		},
	}
}

func govTicket(id string) model.Ticket {
	return model.Ticket{
		ID:           id,
		Title:        "Access review for " + id,
		Customer:     "Acme",
		Status:       model.StatusInProgress,
		Priority:     model.PriorityMedium,
		CurrentStage: 1,
		Stages: []model.Stage{
			{ID: 1, Name: "Ticket Fetching", Status: model.StageCompleted},
			{ID: 2, Name: "Category Check", Status: model.StageInProgress},
			{ID: 3, Name: "SLA Prioritization", Status: model.StagePending},
		},
	}
}

func freshGovTicket(id string) model.Ticket {
	tk := govTicket(id)
	tk.Status = model.StatusNotStarted
	tk.CurrentStage = 0
	for i := range tk.Stages {
		tk.Stages[i].Status = model.StagePending
	}
	return tk
}

func TestDetailView_DescriptiveFields(t *testing.T) {
	tk := govTicket("GOV-001")
	tk.AITNumber = "AIT-42"
	tk.DeliverableType = "access-review"
	tk.Category = "IAM"
	tk.SLADeadline = "2026-09-15"
	tk.ARMID = "ARM-7"
	tk.ApplicationName = "Payments Gateway"
	tk.LOBOwner = "J. Rivera"
	tk.AITOwner = "K. Osei"
	tk.Contacts = []string{"ops@example.com", "sec@example.com"}

	m := newTestModel()
	m.width = 100
	m.filtered = []model.Ticket{tk}

	out := m.detailViewWithHeight(0, 0)
	for _, want := range []string{
		"AIT-42", "access-review", "IAM", "2026-09-15", "ARM-7",
		"Payments Gateway", "J. Rivera", "K. Osei",
		"ops@example.com, sec@example.com",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("detail view missing %q", want)
		}
	}
}

func TestDetailView_OmitsEmptyDescriptiveRows(t *testing.T) {
	m := newTestModel()
	m.width = 100
	m.filtered = []model.Ticket{govTicket("GOV-001")}

	out := m.detailViewWithHeight(0, 0)
	for _, label := range []string{"Category:", "SLA Due:", "ARM:", "LOB Owner:", "Contacts:"} {
		if strings.Contains(out, label) {
			t.Errorf("empty field row %q should not render", label)
		}
	}
}

func TestFilterToggle_KeepsSelection(t *testing.T) {
	m := newTestModel()
	m.tickets = []model.Ticket{freshGovTicket("GOV-001"), govTicket("GOV-002")}
	m.selectedID = "GOV-002"
	m.applyFilters()
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}

	// Hiding not-started tickets removes the row above the selection.
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	got := next.(Model)
	if len(got.filtered) != 1 {
		t.Fatalf("filtered = %d tickets, want 1", len(got.filtered))
	}
	if got.filtered[got.cursor].ID != "GOV-002" {
		t.Errorf("cursor moved off selection to %s", got.filtered[got.cursor].ID)
	}
}

func TestFetchOne_MergesThroughStore(t *testing.T) {
	m := newTestModel()

	next, _ := m.Update(fetchOneMsg{ticket: govTicket("GOV-009")})
	got := next.(Model)
	if _, ok := got.store.Get("GOV-009"); !ok {
		t.Fatal("fetched ticket not in store")
	}
	if len(got.filtered) != 1 {
		t.Errorf("filtered = %d tickets, want 1", len(got.filtered))
	}
}

func TestFetchOne_InvalidRecordDropped(t *testing.T) {
	m := newTestModel()

	bad := govTicket("")
	next, _ := m.Update(fetchOneMsg{ticket: bad})
	got := next.(Model)
	if got.store.Len() != 0 {
		t.Errorf("invalid record stored, store has %d tickets", got.store.Len())
	}
}

func TestRefresh_ResetsScrollOnRecordChange(t *testing.T) {
	m := newTestModel()
	m.engine.Upsert(govTicket("GOV-001"))
	m.selectedID = "GOV-001"
	m.detailScroll = 5

	m.refresh()
	if m.detailScroll != 0 {
		t.Errorf("scroll = %d after first bind, want 0", m.detailScroll)
	}

	// No store change: scroll position is preserved.
	m.detailScroll = 4
	m.refresh()
	if m.detailScroll != 4 {
		t.Errorf("scroll = %d without changes, want 4", m.detailScroll)
	}

	updated := govTicket("GOV-001")
	updated.Stages[1].Status = model.StageCompleted
	updated.Stages[2].Status = model.StageInProgress
	updated.CurrentStage = 2
	m.engine.Upsert(updated)
	m.refresh()
	if m.detailScroll != 0 {
		t.Errorf("scroll = %d after record change, want 0", m.detailScroll)
	}
}

func TestClip_RuneSafe(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
	}{
		{"ascii", "a plain ascii title that is quite long", 12},
		{"multibyte", "チケット処理の進捗ダッシュボード", 12},
		{"mixed", "Review für Übergabe: チェック", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clip(tt.in, tt.width)
			if !utf8.ValidString(got) {
				t.Fatalf("clip produced invalid UTF-8: %q", got)
			}
			if !strings.HasSuffix(got, "...") {
				t.Errorf("clip(%q) = %q, want ellipsis suffix", tt.in, got)
			}
			if w := lipgloss.Width(got); w > tt.width {
				t.Errorf("clip width = %d, want <= %d", w, tt.width)
			}
		})
	}

	if got := clip("short", 12); got != "short" {
		t.Errorf("clip(short) = %q, want unchanged", got)
	}
}

func TestFormatTicketLine_MultibyteTitle(t *testing.T) {
	m := newTestModel()
	tk := govTicket("GOV-001")
	tk.Title = "アクセスレビューのチケットですがとても長いタイトルになっています"

	for _, line := range []string{
		m.formatTicketLinePlain(tk, 50),
		m.formatTicketLineStyled(tk, 50),
	} {
		if !utf8.ValidString(line) {
			t.Errorf("row rendering split a rune: %q", line)
		}
	}
}
