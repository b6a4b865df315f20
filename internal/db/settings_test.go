package db

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestSettingsRoundTrip(t *testing.T) {
	d := openTestDB(t)

	if _, ok, err := d.GetSetting("missing"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := d.SetSetting("last_project_id", "7"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := d.SetSetting("last_project_id", "8"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := d.GetSetting("last_project_id")
	if err != nil || !ok || v != "8" {
		t.Fatalf("expected 8, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestSetAndDeleteSettingsTogether(t *testing.T) {
	d := openTestDB(t)

	if err := d.SetSettings(map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := d.DeleteSettings("a", "b", "never-set"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, k := range []string{"a", "b"} {
		if _, ok, _ := d.GetSetting(k); ok {
			t.Fatalf("expected %s to be deleted", k)
		}
	}
}

func TestNewCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "taskmgr")
	d, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()
	if err := d.SetSetting("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
}
