package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prepdeck/authkit"
)

func TestFSFlowStore_GetSetFlow(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "pending_flows.json")

	store, err := NewFSFlowStore(path, "")
	if err != nil {
		t.Fatalf("NewFSFlowStore() error = %v", err)
	}

	// Initially empty
	flow, err := store.GetFlow("google")
	if err != nil {
		t.Fatalf("GetFlow() error = %v", err)
	}
	if flow != nil {
		t.Errorf("expected nil flow, got %+v", flow)
	}

	now := time.Now()
	testFlow := &authkit.PendingFlow{
		Provider:        "google",
		DeviceCode:      "device-code-1",
		UserCode:        "ABCD-1234",
		VerificationURI: "https://example.com/activate",
		Interval:        5,
		CreatedAt:       now,
		ExpiresAt:       now.Add(15 * time.Minute),
	}

	if err := store.SetFlow("google", testFlow); err != nil {
		t.Fatalf("SetFlow() error = %v", err)
	}

	flow, err = store.GetFlow("google")
	if err != nil {
		t.Fatalf("GetFlow() error = %v", err)
	}
	if flow == nil {
		t.Fatal("expected flow, got nil")
	}
	if flow.DeviceCode != "device-code-1" {
		t.Errorf("DeviceCode = %v, want device-code-1", flow.DeviceCode)
	}
	if flow.UserCode != "ABCD-1234" {
		t.Errorf("UserCode = %v, want ABCD-1234", flow.UserCode)
	}
}

func TestFSFlowStore_SaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "pending_flows.json")

	store, err := NewFSFlowStore(path, "")
	if err != nil {
		t.Fatalf("NewFSFlowStore() error = %v", err)
	}

	testFlow := &authkit.PendingFlow{
		Provider:   "github",
		DeviceCode: "device-code-2",
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(15 * time.Minute),
	}
	if err := store.SetFlow("github", testFlow); err != nil {
		t.Fatalf("SetFlow() error = %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// File permissions should be restricted
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}

	// A fresh store over the same path sees the flow: this is the handle a
	// later process start polls from
	store2, err := NewFSFlowStore(path, "")
	if err != nil {
		t.Fatalf("NewFSFlowStore() reload error = %v", err)
	}
	flow, err := store2.GetFlow("github")
	if err != nil {
		t.Fatalf("GetFlow() error = %v", err)
	}
	if flow == nil || flow.DeviceCode != "device-code-2" {
		t.Errorf("reloaded flow = %+v, want device-code-2", flow)
	}
}

func TestFSFlowStore_RemoveFlow(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "pending_flows.json")

	store, err := NewFSFlowStore(path, "")
	if err != nil {
		t.Fatalf("NewFSFlowStore() error = %v", err)
	}

	if err := store.SetFlow("google", &authkit.PendingFlow{DeviceCode: "x"}); err != nil {
		t.Fatalf("SetFlow() error = %v", err)
	}
	if err := store.RemoveFlow("google"); err != nil {
		t.Fatalf("RemoveFlow() error = %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	flow, err := store.GetFlow("google")
	if err != nil {
		t.Fatalf("GetFlow() error = %v", err)
	}
	if flow != nil {
		t.Errorf("expected nil after remove, got %+v", flow)
	}
}

func TestFSFlowStore_MissingFileIsEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "does", "not", "exist.json")

	store, err := NewFSFlowStore(path, "")
	if err != nil {
		t.Fatalf("NewFSFlowStore() error = %v", err)
	}
	flow, err := store.GetFlow("google")
	if err != nil || flow != nil {
		t.Errorf("GetFlow() = (%+v, %v), want (nil, nil)", flow, err)
	}
}

func TestFSFlowStore_SaveWithoutChangesIsNoop(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "pending_flows.json")

	store, err := NewFSFlowStore(path, "")
	if err != nil {
		t.Fatalf("NewFSFlowStore() error = %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("an unmodified store should not create the file")
	}
}
