package validation

import (
	"strings"
	"testing"
)

func TestValidateRoomID(t *testing.T) {
	valid := []string{"room-42", "consult_2026-08-29", "a", "ROOM99"}
	for _, id := range valid {
		if err := ValidateRoomID(id); err != nil {
			t.Errorf("ValidateRoomID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{"", "room 42", "room/42", "room#42", strings.Repeat("x", 101)}
	for _, id := range invalid {
		if err := ValidateRoomID(id); err == nil {
			t.Errorf("ValidateRoomID(%q) = nil, want error", id)
		}
	}
}

func TestValidateConnectionID(t *testing.T) {
	if err := ValidateConnectionID("550e8400-e29b-41d4-a716-446655440000"); err != nil {
		t.Errorf("ValidateConnectionID(uuid) = %v, want nil", err)
	}
	if err := ValidateConnectionID(""); err == nil {
		t.Error("ValidateConnectionID(\"\") = nil, want error")
	}
	if err := ValidateConnectionID("has spaces"); err == nil {
		t.Error("ValidateConnectionID with spaces = nil, want error")
	}
}

func TestValidateUserName(t *testing.T) {
	valid := []string{"Dr. House", "J. Doe", "Ольга", "李医生"}
	for _, name := range valid {
		if err := ValidateUserName(name); err != nil {
			t.Errorf("ValidateUserName(%q) = %v, want nil", name, err)
		}
	}

	if err := ValidateUserName(""); err == nil {
		t.Error("ValidateUserName(\"\") = nil, want error")
	}
	if err := ValidateUserName("   "); err == nil {
		t.Error("ValidateUserName(whitespace) = nil, want error")
	}
	if err := ValidateUserName(strings.Repeat("x", 101)); err == nil {
		t.Error("ValidateUserName(too long) = nil, want error")
	}
	if err := ValidateUserName(string([]byte{0xff, 0xfe})); err == nil {
		t.Error("ValidateUserName(invalid utf8) = nil, want error")
	}
}

func TestValidateUserID(t *testing.T) {
	if err := ValidateUserID("u-123"); err != nil {
		t.Errorf("ValidateUserID(u-123) = %v, want nil", err)
	}
	if err := ValidateUserID(""); err == nil {
		t.Error("ValidateUserID(\"\") = nil, want error")
	}
}
