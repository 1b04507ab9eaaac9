package tui

import (
	"strings"
	"testing"

	"github.com/jamesainslie/reconcile/pkg/reconcile/compare"
	"github.com/jamesainslie/reconcile/pkg/reconcile/plan"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

func pickerGroups() []compare.DupGroup {
	d1 := strings.Repeat("aa", 32)
	d2 := strings.Repeat("bb", 32)
	return []compare.DupGroup{
		{
			Digest: d1,
			Tree:   types.TreeA,
			Records: []types.FileRecord{
				{Tree: types.TreeA, Path: "photos/trip.jpg", Size: 2048, Digest: d1},
				{Tree: types.TreeA, Path: "backup/trip.jpg", Size: 2048, Digest: d1},
				{Tree: types.TreeA, Path: "old/trip.jpg", Size: 2048, Digest: d1},
			},
		},
		{
			Digest: d2,
			Tree:   types.TreeA,
			Records: []types.FileRecord{
				{Tree: types.TreeA, Path: "docs/report.pdf", Size: 4096, Digest: d2},
				{Tree: types.TreeA, Path: "docs/report-copy.pdf", Size: 4096, Digest: d2},
			},
		},
	}
}

func TestNewPickerModel(t *testing.T) {
	m := NewPickerModel(pickerGroups())

	if m.Empty() {
		t.Error("expected picker not to be empty")
	}
	if m.Done() {
		t.Error("expected picker not to be done initially")
	}
	if m.index != 0 {
		t.Errorf("expected index 0, got %d", m.index)
	}
	if m.cursor != 0 {
		t.Errorf("expected cursor 0, got %d", m.cursor)
	}
	if m.GroupCount() != 2 {
		t.Errorf("expected 2 groups, got %d", m.GroupCount())
	}
	if m.DecidedCount() != 0 {
		t.Errorf("expected 0 decisions, got %d", m.DecidedCount())
	}
}

func TestPickerModelEmpty(t *testing.T) {
	m := NewPickerModel(nil)

	if !m.Empty() {
		t.Error("expected picker to be empty")
	}
	if !m.Done() {
		t.Error("expected empty picker to be done")
	}

	// Key handling must not panic with no groups
	m.HandleKey("down")
	m.HandleKey("enter")
	m.HandleKey("a")

	if m.DecidedCount() != 0 {
		t.Errorf("expected 0 decisions, got %d", m.DecidedCount())
	}

	view := m.View()
	if view == "" {
		t.Error("expected non-empty view for empty picker")
	}
}

func TestPickerModelNavigation(t *testing.T) {
	m := NewPickerModel(pickerGroups())

	// Can't go up from first member
	m.HandleKey("up")
	if m.cursor != 0 {
		t.Errorf("expected cursor 0 (boundary), got %d", m.cursor)
	}

	m.HandleKey("down")
	if m.cursor != 1 {
		t.Errorf("expected cursor 1, got %d", m.cursor)
	}

	m.HandleKey("j")
	if m.cursor != 2 {
		t.Errorf("expected cursor 2, got %d", m.cursor)
	}

	// Can't go past the last member
	m.HandleKey("down")
	if m.cursor != 2 {
		t.Errorf("expected cursor 2 (boundary), got %d", m.cursor)
	}

	m.HandleKey("k")
	if m.cursor != 1 {
		t.Errorf("expected cursor 1, got %d", m.cursor)
	}
}

func TestPickerModelKeepThis(t *testing.T) {
	groups := pickerGroups()
	m := NewPickerModel(groups)

	m.HandleKey("down")
	m.HandleKey("enter")

	dec, ok := m.Decisions()[plan.GroupKey(groups[0])]
	if !ok {
		t.Fatal("expected a decision for the first group")
	}
	if dec.Keeper != plan.MemberKey(groups[0].Records[1]) {
		t.Errorf("expected keeper %s, got %s", plan.MemberKey(groups[0].Records[1]), dec.Keeper)
	}
	if dec.KeepAll || dec.KeepNone {
		t.Error("expected a keeper decision, not keep-all or keep-none")
	}

	// Enter advances to the next group with a fresh cursor
	if m.index != 1 {
		t.Errorf("expected index 1 after decision, got %d", m.index)
	}
	if m.cursor != 0 {
		t.Errorf("expected cursor reset to 0, got %d", m.cursor)
	}
}

func TestPickerModelKeepAll(t *testing.T) {
	groups := pickerGroups()
	m := NewPickerModel(groups)

	m.HandleKey("a")

	dec, ok := m.Decisions()[plan.GroupKey(groups[0])]
	if !ok {
		t.Fatal("expected a decision for the first group")
	}
	if !dec.KeepAll {
		t.Error("expected KeepAll decision")
	}
	if m.index != 1 {
		t.Errorf("expected index 1, got %d", m.index)
	}
}

func TestPickerModelKeepNone(t *testing.T) {
	groups := pickerGroups()
	m := NewPickerModel(groups)

	m.HandleKey("n")

	dec, ok := m.Decisions()[plan.GroupKey(groups[0])]
	if !ok {
		t.Fatal("expected a decision for the first group")
	}
	if !dec.KeepNone {
		t.Error("expected KeepNone decision")
	}
}

func TestPickerModelSkip(t *testing.T) {
	m := NewPickerModel(pickerGroups())

	m.HandleKey("s")

	if m.DecidedCount() != 0 {
		t.Errorf("expected no decision after skip, got %d", m.DecidedCount())
	}
	if m.index != 1 {
		t.Errorf("expected index 1 after skip, got %d", m.index)
	}
}

func TestPickerModelBack(t *testing.T) {
	groups := pickerGroups()
	m := NewPickerModel(groups)

	// Back at the first group stays put
	m.HandleKey("left")
	if m.index != 0 {
		t.Errorf("expected index 0, got %d", m.index)
	}

	m.HandleKey("enter")
	m.HandleKey("h")
	if m.index != 0 {
		t.Errorf("expected index 0 after back, got %d", m.index)
	}

	// The earlier decision survives the revisit
	if m.DecidedCount() != 1 {
		t.Errorf("expected 1 decision, got %d", m.DecidedCount())
	}

	// Deciding again replaces it
	m.HandleKey("a")
	dec := m.Decisions()[plan.GroupKey(groups[0])]
	if !dec.KeepAll {
		t.Error("expected revised decision to be KeepAll")
	}
	if m.DecidedCount() != 1 {
		t.Errorf("expected 1 decision after revision, got %d", m.DecidedCount())
	}
}

func TestPickerModelDone(t *testing.T) {
	m := NewPickerModel(pickerGroups())

	m.HandleKey("enter")
	m.HandleKey("a")

	if !m.Done() {
		t.Error("expected picker to be done after deciding both groups")
	}
	if m.DecidedCount() != 2 {
		t.Errorf("expected 2 decisions, got %d", m.DecidedCount())
	}

	// Keys are ignored once done
	m.HandleKey("enter")
	if m.DecidedCount() != 2 {
		t.Errorf("expected 2 decisions after done, got %d", m.DecidedCount())
	}

	view := m.View()
	if view == "" {
		t.Error("expected non-empty view when done")
	}
}

func TestPickerModelMemberMark(t *testing.T) {
	groups := pickerGroups()
	m := NewPickerModel(groups)
	g := groups[0]

	// No decision yet: nothing is marked kept
	mark := m.memberMark(g, g.Records[0])
	if strings.Contains(mark, "[x]") {
		t.Errorf("expected unmarked member before decision, got %q", mark)
	}

	m.HandleKey("enter") // keep the first member

	if mark := m.memberMark(g, g.Records[0]); !strings.Contains(mark, "[x]") {
		t.Errorf("expected keeper to be marked, got %q", mark)
	}
	if mark := m.memberMark(g, g.Records[1]); strings.Contains(mark, "[x]") {
		t.Errorf("expected non-keeper to be unmarked, got %q", mark)
	}
}

func TestPickerModelMemberMarkKeepAll(t *testing.T) {
	groups := pickerGroups()
	m := NewPickerModel(groups)
	g := groups[0]

	m.HandleKey("a")

	for i, rec := range g.Records {
		if mark := m.memberMark(g, rec); !strings.Contains(mark, "[x]") {
			t.Errorf("expected member %d marked kept under keep-all, got %q", i, mark)
		}
	}
}

func TestPickerModelMemberMarkKeepNone(t *testing.T) {
	groups := pickerGroups()
	m := NewPickerModel(groups)
	g := groups[0]

	m.HandleKey("n")

	for i, rec := range g.Records {
		if mark := m.memberMark(g, rec); strings.Contains(mark, "[x]") {
			t.Errorf("expected member %d unmarked under keep-none, got %q", i, mark)
		}
	}
}

func TestPickerModelScrolling(t *testing.T) {
	d := strings.Repeat("cc", 32)
	records := make([]types.FileRecord, 8)
	for i := range records {
		records[i] = types.FileRecord{
			Tree: types.TreeA, Path: strings.Repeat("x", i+1) + ".txt", Size: 64, Digest: d,
		}
	}
	m := NewPickerModel([]compare.DupGroup{{Digest: d, Tree: types.TreeA, Records: records}})

	// height 17 leaves five visible rows
	m.SetDimensions(80, 17)
	if rows := m.visibleRows(); rows != 5 {
		t.Fatalf("expected 5 visible rows, got %d", rows)
	}

	for range 5 {
		m.HandleKey("down")
	}
	if m.cursor != 5 {
		t.Fatalf("expected cursor 5, got %d", m.cursor)
	}
	if m.offset != 1 {
		t.Errorf("expected offset 1 to keep cursor visible, got %d", m.offset)
	}

	// Scrolling back up pulls the offset with it
	for range 5 {
		m.HandleKey("up")
	}
	if m.offset != 0 {
		t.Errorf("expected offset 0, got %d", m.offset)
	}
}

func TestPickerModelView(t *testing.T) {
	m := NewPickerModel(pickerGroups())
	m.SetDimensions(100, 30)

	view := m.View()
	if view == "" {
		t.Error("expected non-empty view")
	}
	if !strings.Contains(view, "Duplicate group 1 of 2") {
		t.Errorf("expected group header in view")
	}
}

func TestShortDigest(t *testing.T) {
	full := strings.Repeat("ab", 32)
	if got := shortDigest(full); got != full[:12] {
		t.Errorf("shortDigest(full) = %q, want %q", got, full[:12])
	}
	if got := shortDigest("abcd"); got != "abcd" {
		t.Errorf("shortDigest(%q) = %q, want unchanged", "abcd", got)
	}
}
