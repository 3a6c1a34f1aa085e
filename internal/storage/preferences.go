package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Preference keys stored per user.
const (
	PrefFavorites     = "disease_favorites"
	PrefCompare       = "disease_compare"
	PrefSearchHistory = "disease_search_history"
	PrefUserData      = "userData"
	PrefUserSettings  = "userSettings"

	// PrefPromptPrefix + prompt type holds a user's advisor prompt override.
	PrefPromptPrefix = "prompt_"
)

// ErrMalformedPreference is returned by LoadJSONPreference when the stored
// value is not valid JSON for the destination type.
var ErrMalformedPreference = errors.New("malformed preference")

// LoadJSONPreference decodes a stored JSON preference into dest.
// It reports false when the key has never been written.
func LoadJSONPreference(s Store, userID int64, key string, dest any) (bool, error) {
	raw, err := s.GetUserPreference(userID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get preference %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return true, fmt.Errorf("%w %s: %v", ErrMalformedPreference, key, err)
	}
	return true, nil
}

// SaveJSONPreference encodes value as JSON and stores it under key.
func SaveJSONPreference(s Store, userID int64, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode preference %s: %w", key, err)
	}
	if err := s.SetUserPreference(userID, key, string(data)); err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}
