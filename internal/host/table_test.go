package host

import (
	"bytes"
	"errors"
	"testing"
)

// TestTable tests variable creation, resolution and destruction
func TestTable(t *testing.T) {
	t.Run("create and get", func(t *testing.T) {
		tbl := NewTable()

		v, err := tbl.Create("color", FlagRemovable, nil)
		if err != nil {
			t.Fatalf("Failed to create: %v", err)
		}
		if v.Name != "color" {
			t.Errorf("Expected name 'color', got %s", v.Name)
		}
		if v.Hash == nil {
			t.Fatal("Create should install a default container")
		}

		got, ok := tbl.Get("color")
		if !ok || got != v {
			t.Error("Get should resolve to the created variable")
		}
	})

	t.Run("create rejects duplicates", func(t *testing.T) {
		tbl := NewTable()

		if _, err := tbl.Create("v", 0, nil); err != nil {
			t.Fatalf("Failed to create: %v", err)
		}
		if _, err := tbl.Create("v", 0, nil); !errors.Is(err, ErrExists) {
			t.Errorf("Expected ErrExists, got %v", err)
		}
	})

	t.Run("create rejects empty name", func(t *testing.T) {
		tbl := NewTable()

		if _, err := tbl.Create("", 0, nil); !errors.Is(err, ErrBadName) {
			t.Errorf("Expected ErrBadName, got %v", err)
		}
	})

	t.Run("fetch auto-creates a plain removable variable", func(t *testing.T) {
		tbl := NewTable()

		v, err := tbl.Fetch("auto")
		if err != nil {
			t.Fatalf("Failed to fetch: %v", err)
		}
		if !v.Flags.Has(FlagRemovable) {
			t.Error("Auto-created variable should be removable")
		}
		if v.Flags.Has(FlagSpecial) {
			t.Error("Auto-created variable should not be special")
		}

		again, err := tbl.Fetch("auto")
		if err != nil || again != v {
			t.Error("Second fetch should return the same variable")
		}
	})

	t.Run("assign replaces the whole content", func(t *testing.T) {
		tbl := NewTable()

		v, err := tbl.Assign("v", map[string][]byte{
			"a": []byte("1"),
			"b": []byte("2"),
		})
		if err != nil {
			t.Fatalf("Failed to assign: %v", err)
		}
		if v.Hash.Len() != 2 {
			t.Fatalf("Expected 2 elements, got %d", v.Hash.Len())
		}

		// A second assignment replaces, it never merges
		if _, err := tbl.Assign("v", map[string][]byte{"c": []byte("3")}); err != nil {
			t.Fatalf("Failed to reassign: %v", err)
		}
		if _, ok := v.Hash.Lookup("a"); ok {
			t.Error("Old content should be gone after reassignment")
		}
		c, ok := v.Hash.Lookup("c")
		if !ok || !bytes.Equal(c.Value(), []byte("3")) {
			t.Error("New content should be in place after reassignment")
		}
	})

	t.Run("assign refuses read-only variables", func(t *testing.T) {
		tbl := NewTable()

		v, _ := tbl.Create("ro", FlagReadOnly, nil)
		v.Hash.Fetch("k").SetValue([]byte("x"))

		if _, err := tbl.Assign("ro", map[string][]byte{"k": []byte("y")}); !errors.Is(err, ErrReadOnly) {
			t.Errorf("Expected ErrReadOnly, got %v", err)
		}
		if got, _ := v.Hash.Lookup("k"); !bytes.Equal(got.Value(), []byte("x")) {
			t.Error("Content should survive a refused assignment")
		}
	})

	t.Run("unset removes the variable", func(t *testing.T) {
		tbl := NewTable()

		v, _ := tbl.Create("v", FlagRemovable, nil)
		v.Hash.Fetch("k").SetValue([]byte("x"))

		if err := tbl.Unset("v"); err != nil {
			t.Fatalf("Failed to unset: %v", err)
		}
		if _, ok := tbl.Get("v"); ok {
			t.Error("Variable should be gone after unset")
		}
		if v.Hash.Len() != 0 {
			t.Error("Container should be torn down on unset")
		}
	})

	t.Run("unset missing variable", func(t *testing.T) {
		tbl := NewTable()

		if err := tbl.Unset("ghost"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unset refuses read-only variables", func(t *testing.T) {
		tbl := NewTable()

		v, _ := tbl.Create("ro", FlagReadOnly, nil)
		v.Hash.Fetch("k").SetValue([]byte("x"))

		if err := tbl.Unset("ro"); !errors.Is(err, ErrReadOnly) {
			t.Errorf("Expected ErrReadOnly, got %v", err)
		}

		// The variable and its content survive the refusal
		got, ok := tbl.Get("ro")
		if !ok {
			t.Fatal("Read-only variable should survive unset")
		}
		if got.Hash.Len() != 1 {
			t.Error("Content should survive a refused unset")
		}
	})

	t.Run("unset clears special and read-only bits", func(t *testing.T) {
		tbl := NewTable()

		v, _ := tbl.Create("s", FlagSpecial|FlagRemovable, nil)
		if err := tbl.Unset("s"); err != nil {
			t.Fatalf("Failed to unset: %v", err)
		}
		if v.Flags.Has(FlagSpecial) {
			t.Error("Special bit should be cleared by unset")
		}
	})

	t.Run("names come back sorted", func(t *testing.T) {
		tbl := NewTable()

		for _, name := range []string{"zeta", "alpha", "mid"} {
			if _, err := tbl.Create(name, 0, nil); err != nil {
				t.Fatalf("Failed to create %s: %v", name, err)
			}
		}

		names := tbl.Names()
		want := []string{"alpha", "mid", "zeta"}
		if len(names) != len(want) {
			t.Fatalf("Expected %d names, got %d", len(want), len(names))
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("Position %d: expected %s, got %s", i, want[i], names[i])
			}
		}
	})
}

// TestFlag tests the attribute bitset
func TestFlag(t *testing.T) {
	f := FlagSpecial | FlagReadOnly

	if !f.Has(FlagSpecial) {
		t.Error("Expected special bit set")
	}
	if !f.Has(FlagSpecial | FlagReadOnly) {
		t.Error("Has should accept combined masks")
	}
	if f.Has(FlagRemovable) {
		t.Error("Removable bit should not be set")
	}

	f &^= FlagReadOnly
	if f.Has(FlagReadOnly) {
		t.Error("Read-only bit should be cleared")
	}
}
