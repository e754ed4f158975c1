package store

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/elves/elvx/pkg/tbl"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "elvx.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPatches(t *testing.T) {
	s := openTemp(t)

	if patches, err := s.Patches("grid"); len(patches) != 0 || err != nil {
		t.Errorf("Patches of unknown output -> (%v, %v), want (empty, nil)", patches, err)
	}

	seq, err := s.AddPatches("grid", []tbl.CellPatch{
		{RowIndex: 0, ColumnIndex: 1, Value: "a"},
		{RowIndex: 2, ColumnIndex: 0, Value: 7},
	})
	if seq != 2 || err != nil {
		t.Errorf("AddPatches -> (%v, %v), want (2, nil)", seq, err)
	}
	s.AddPatches("grid", []tbl.CellPatch{{RowIndex: 0, ColumnIndex: 1, Value: 1.5}})
	s.AddPatches("other", []tbl.CellPatch{{RowIndex: 0, ColumnIndex: 0, Value: nil}})

	patches, err := s.Patches("grid")
	if err != nil {
		t.Fatal(err)
	}
	want := []tbl.CellPatch{
		{RowIndex: 0, ColumnIndex: 1, Value: "a"},
		{RowIndex: 2, ColumnIndex: 0, Value: 7},
		{RowIndex: 0, ColumnIndex: 1, Value: 1.5},
	}
	if diff := cmp.Diff(want, patches); diff != "" {
		t.Errorf("Patches (-want +got):\n%s", diff)
	}

	ranged, err := s.PatchesWithSeq("grid", 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Patch{{want[1], 2}}, ranged); diff != "" {
		t.Errorf("PatchesWithSeq (-want +got):\n%s", diff)
	}

	outputs, _ := s.Outputs()
	if diff := cmp.Diff([]string{"grid", "other"}, outputs); diff != "" {
		t.Errorf("Outputs (-want +got):\n%s", diff)
	}
}

func TestDelAndClearPatches(t *testing.T) {
	s := openTemp(t)
	s.AddPatches("grid", []tbl.CellPatch{
		{RowIndex: 0, ColumnIndex: 0, Value: "a"},
		{RowIndex: 1, ColumnIndex: 0, Value: "b"},
	})

	if err := s.DelPatch("grid", 1); err != nil {
		t.Fatal(err)
	}
	if err := s.DelPatch("grid", 1); err != ErrNoMatchingPatch {
		t.Errorf("deleting a deleted patch -> %v, want ErrNoMatchingPatch", err)
	}
	patches, _ := s.Patches("grid")
	if diff := cmp.Diff([]tbl.CellPatch{{RowIndex: 1, ColumnIndex: 0, Value: "b"}}, patches); diff != "" {
		t.Errorf("Patches after DelPatch (-want +got):\n%s", diff)
	}

	if err := s.ClearPatches("grid"); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearPatches("never"); err != nil {
		t.Errorf("clearing an unknown output -> %v", err)
	}
	if patches, _ := s.Patches("grid"); len(patches) != 0 {
		t.Errorf("Patches after ClearPatches = %v", patches)
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elvx.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s.AddPatches("grid", []tbl.CellPatch{{RowIndex: 0, ColumnIndex: 0, Value: true}})
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	patches, _ := s.Patches("grid")
	if diff := cmp.Diff([]tbl.CellPatch{{RowIndex: 0, ColumnIndex: 0, Value: true}}, patches); diff != "" {
		t.Errorf("Patches after reopening (-want +got):\n%s", diff)
	}
}
