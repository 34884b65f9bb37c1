package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("failed to get default path: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("expected absolute path, got %q", path)
	}
	if !strings.Contains(path, filepath.Join(".tickwatch", "tickwatch.db")) {
		t.Errorf("expected path to contain .tickwatch/tickwatch.db, got %q", path)
	}
}

func TestCreateUser(t *testing.T) {
	s := setupTestStore(t)

	if err := s.CreateUser("alice"); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	users, err := s.Users()
	if err != nil {
		t.Fatalf("failed to list users: %v", err)
	}
	if len(users) != 1 || users[0] != "alice" {
		t.Errorf("users = %v, want [alice]", users)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	s := setupTestStore(t)

	if err := s.CreateUser("alice"); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if err := s.CreateUser("alice"); err == nil {
		t.Error("expected error for duplicate user")
	}
}

func TestCreateUser_Empty(t *testing.T) {
	s := setupTestStore(t)
	if err := s.CreateUser(""); err == nil {
		t.Error("expected error for empty username")
	}
}

func TestSignIn(t *testing.T) {
	s := setupTestStore(t)
	if err := s.CreateUser("alice"); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	sess, err := s.SignIn("alice")
	if err != nil {
		t.Fatalf("failed to sign in: %v", err)
	}
	if sess.Username != "alice" {
		t.Errorf("session username = %q, want %q", sess.Username, "alice")
	}

	got, ok, err := s.Current()
	if err != nil {
		t.Fatalf("failed to read session: %v", err)
	}
	if !ok || got.Username != "alice" {
		t.Errorf("current = (%v, %v), want (alice, true)", got, ok)
	}
}

func TestSignIn_UnknownUser(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.SignIn("ghost"); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestSignIn_SwitchesUser(t *testing.T) {
	s := setupTestStore(t)
	for _, u := range []string{"alice", "bob"} {
		if err := s.CreateUser(u); err != nil {
			t.Fatalf("failed to create %s: %v", u, err)
		}
	}

	if _, err := s.SignIn("alice"); err != nil {
		t.Fatalf("failed to sign in alice: %v", err)
	}
	if _, err := s.SignIn("bob"); err != nil {
		t.Fatalf("failed to sign in bob: %v", err)
	}

	got, ok, _ := s.Current()
	if !ok || got.Username != "bob" {
		t.Errorf("current = (%v, %v), want (bob, true)", got, ok)
	}
}

func TestSignOut(t *testing.T) {
	s := setupTestStore(t)
	if err := s.CreateUser("alice"); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if _, err := s.SignIn("alice"); err != nil {
		t.Fatalf("failed to sign in: %v", err)
	}

	if err := s.SignOut(); err != nil {
		t.Fatalf("failed to sign out: %v", err)
	}
	if _, ok, _ := s.Current(); ok {
		t.Error("expected no current session after sign out")
	}

	// Signing out twice is fine.
	if err := s.SignOut(); err != nil {
		t.Errorf("second sign out errored: %v", err)
	}
}

func TestCurrent_Empty(t *testing.T) {
	s := setupTestStore(t)
	_, ok, err := s.Current()
	if err != nil {
		t.Fatalf("failed to read session: %v", err)
	}
	if ok {
		t.Error("expected no session in a fresh store")
	}
}
