package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// RoomIDRegex validates room ID format
	RoomIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// ConnectionIDRegex validates connection ID format
	ConnectionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateRoomID validates a room ID
func ValidateRoomID(roomID string) error {
	if roomID == "" {
		return fmt.Errorf("room ID is required")
	}
	if len(roomID) > 100 {
		return fmt.Errorf("room ID is too long (max 100 characters)")
	}
	if !RoomIDRegex.MatchString(roomID) {
		return fmt.Errorf("invalid room ID format")
	}
	return nil
}

// ValidateConnectionID validates a connection ID
func ValidateConnectionID(connectionID string) error {
	if connectionID == "" {
		return fmt.Errorf("connection ID is required")
	}
	if len(connectionID) > 100 {
		return fmt.Errorf("connection ID is too long (max 100 characters)")
	}
	if !ConnectionIDRegex.MatchString(connectionID) {
		return fmt.Errorf("invalid connection ID format")
	}
	return nil
}

// ValidateUserName validates a display name
func ValidateUserName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("user name is required")
	}
	if len(name) > 100 {
		return fmt.Errorf("user name is too long (max 100 characters)")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("user name contains invalid characters")
	}
	return nil
}

// ValidateUserID validates a user ID
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if len(userID) > 100 {
		return fmt.Errorf("user ID is too long (max 100 characters)")
	}
	return nil
}
