package prefs

import (
	"fmt"
	"strconv"
	"strings"
)

// UserData is the editable profile shown on the profile page.
type UserData struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Region       string `json:"region"`
	BirthDate    string `json:"birthDate"`
	Phone        string `json:"phone"`
	ScanCount    int    `json:"scanCount"`
	ProjectCount int    `json:"projectCount"`
}

// DefaultUserData is the profile of a user who never saved one.
func DefaultUserData() UserData {
	return UserData{
		FullName:     "张三",
		Email:        "zhangsan@example.com",
		Region:       "beijing",
		BirthDate:    "2000-01-01",
		Phone:        "13800138000",
		ScanCount:    128,
		ProjectCount: 3,
	}
}

// Merge copies the non-empty text fields of update onto d. Counters are
// not user-editable and are kept.
func (d UserData) Merge(update UserData) UserData {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&d.FullName, update.FullName)
	set(&d.Email, update.Email)
	set(&d.Region, update.Region)
	set(&d.BirthDate, update.BirthDate)
	set(&d.Phone, update.Phone)
	return d
}

// Settings are free-form toggles keyed by name.
type Settings map[string]any

// Well-known setting keys.
const (
	SettingNotifications = "notifications"
	SettingDarkMode      = "darkMode"
	SettingAutoBackup    = "autoBackup"
)

// Set stores value under key. "true" and "false" are stored as booleans,
// anything else as a string.
func (s Settings) Set(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("setting key is empty")
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
		s[key] = b
		return nil
	}
	s[key] = value
	return nil
}

// Bool reads a boolean setting; missing or non-boolean values are false.
func (s Settings) Bool(key string) bool {
	b, _ := s[key].(bool)
	return b
}
