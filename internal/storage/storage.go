package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on top of a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new database connection and initializes the schema
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// User management

// CreateUser adds a named user and returns its ID.
func (s *SQLiteStore) CreateUser(name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("create user: empty name")
	}
	result, err := s.db.Exec("INSERT INTO users (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("create user %q: %w", name, err)
	}
	return result.LastInsertId()
}

// EnsureUser creates the user with the given ID if it does not exist yet.
func (s *SQLiteStore) EnsureUser(id int64, name string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO users (id, name) VALUES (?, ?)", id, name)
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", id, err)
	}
	return nil
}

// GetUserByName looks a user up case-insensitively. Returns nil, nil when absent.
func (s *SQLiteStore) GetUserByName(name string) (*User, error) {
	var u User
	err := s.db.QueryRow(
		"SELECT id, name, created_at FROM users WHERE name = ?", name,
	).Scan(&u.ID, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", name, err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by ID.
func (s *SQLiteStore) ListUsers() ([]User, error) {
	rows, err := s.db.Query("SELECT id, name, created_at FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// User preference management

// GetUserPreference retrieves a single preference value for a user.
// A missing key returns sql.ErrNoRows.
func (s *SQLiteStore) GetUserPreference(userID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM user_preferences WHERE user_id = ? AND key = ?",
		userID, key,
	).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetUserPreference sets a preference value, creating or updating as needed.
func (s *SQLiteStore) SetUserPreference(userID int64, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO user_preferences (user_id, key, value, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id, key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		userID, key, value,
	)
	return err
}

// GetAllUserPreferences returns all preferences for a user as a key-value map.
func (s *SQLiteStore) GetAllUserPreferences(userID int64) (map[string]string, error) {
	rows, err := s.db.Query(
		"SELECT key, value FROM user_preferences WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get user preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs[k] = v
	}
	return prefs, rows.Err()
}

// DeleteUserPreference removes a single preference for a user.
func (s *SQLiteStore) DeleteUserPreference(userID int64, key string) error {
	_, err := s.db.Exec(
		"DELETE FROM user_preferences WHERE user_id = ? AND key = ?",
		userID, key,
	)
	return err
}

// Data source cache state

// GetDataSource returns the cache state for a dataset URL, or nil if it was never fetched.
func (s *SQLiteStore) GetDataSource(url string) (*DataSource, error) {
	var ds DataSource
	var etag, lastMod sql.NullString
	err := s.db.QueryRow(
		"SELECT url, etag, last_modified, last_fetched, last_error FROM data_sources WHERE url = ?", url,
	).Scan(&ds.URL, &etag, &lastMod, &ds.LastFetched, &ds.LastError)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get data source: %w", err)
	}
	ds.ETag = etag.String
	ds.LastModified = lastMod.String
	return &ds, nil
}

// UpdateDataSourceCacheHeaders stores the HTTP cache headers from the last successful fetch.
func (s *SQLiteStore) UpdateDataSourceCacheHeaders(url, etag, lastModified string) error {
	_, err := s.db.Exec(
		`INSERT INTO data_sources (url, etag, last_modified, last_fetched, last_error)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP, NULL)
		 ON CONFLICT(url) DO UPDATE SET
		   etag = excluded.etag,
		   last_modified = excluded.last_modified,
		   last_fetched = excluded.last_fetched,
		   last_error = NULL`,
		url, etag, lastModified,
	)
	if err != nil {
		return fmt.Errorf("failed to update data source cache headers: %w", err)
	}
	return nil
}

// UpdateDataSourceError records a fetch error for a dataset URL.
func (s *SQLiteStore) UpdateDataSourceError(url, errMsg string) error {
	_, err := s.db.Exec(
		`INSERT INTO data_sources (url, last_error) VALUES (?, ?)
		 ON CONFLICT(url) DO UPDATE SET last_error = excluded.last_error`,
		url, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to update data source error: %w", err)
	}
	return nil
}
