// Package auth keeps the local membership list and the signed-in user.
//
// The store lives at ~/.tickwatch/tickwatch.db by default. This is a
// trivial local check with no passwords, no expiry, and no server
// validation; it only gates which username the client runs as.
package auth

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS session (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	username TEXT NOT NULL REFERENCES users(username)
);
`

// Store wraps the SQLite connection with membership operations.
type Store struct {
	*sql.DB
}

// Session is the signed-in user, passed explicitly to the view layer at
// startup. Dropping the value is the whole teardown.
type Session struct {
	Username string
}

// DefaultPath returns the default store path (~/.tickwatch/tickwatch.db).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tickwatch", "tickwatch.db"), nil
}

// Open opens or creates the store at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db}, nil
}

// CreateUser adds a username to the membership list.
func (s *Store) CreateUser(username string) error {
	if username == "" {
		return fmt.Errorf("username is empty")
	}
	_, err := s.Exec(`INSERT INTO users (username, created_at) VALUES (?, ?)`,
		username, time.Now())
	if err != nil {
		return fmt.Errorf("user already exists: %s", username)
	}
	return nil
}

// SignIn makes an existing user the current session.
func (s *Store) SignIn(username string) (Session, error) {
	var exists int
	err := s.QueryRow(`SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&exists)
	if err != nil {
		return Session{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if exists == 0 {
		return Session{}, fmt.Errorf("user not found: %s (create it with 'tickwatch login --create %s')", username, username)
	}

	_, err = s.Exec(`
		INSERT INTO session (id, username) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username`, username)
	if err != nil {
		return Session{}, fmt.Errorf("failed to store session: %w", err)
	}
	return Session{Username: username}, nil
}

// SignOut clears the current session. Signing out when nobody is signed in
// is not an error.
func (s *Store) SignOut() error {
	_, err := s.Exec(`DELETE FROM session WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Current returns the signed-in session, or ok=false when nobody is.
func (s *Store) Current() (Session, bool, error) {
	var username string
	err := s.QueryRow(`SELECT username FROM session WHERE id = 1`).Scan(&username)
	if err == sql.ErrNoRows {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	return Session{Username: username}, true, nil
}

// Users lists known usernames in creation order.
func (s *Store) Users() ([]string, error) {
	rows, err := s.Query(`SELECT username FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
