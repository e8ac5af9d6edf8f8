package model

import "testing"

func TestChildEmailRoundTrip(t *testing.T) {
	parentEmail := "parent@example.com"
	childULID := "01HZXW8E5VQ4T0J9M3N6P7R8S9"

	email := ChildEmail(parentEmail, childULID)

	if !IsChildEmail(email) {
		t.Fatalf("IsChildEmail(%q) = false, want true", email)
	}
	if got := ParentEmailOf(email); got != parentEmail {
		t.Errorf("ParentEmailOf(%q) = %q, want %q", email, got, parentEmail)
	}
}

func TestIsChildEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"parent@example.com#child_01HZXW8E5VQ4T0J9M3N6P7R8S9", true},
		{"parent@example.com", false},
		{"", false},
		{"#child_abc", true},
	}

	for _, tt := range tests {
		if got := IsChildEmail(tt.email); got != tt.want {
			t.Errorf("IsChildEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestParentEmailOfPlainAddress(t *testing.T) {
	if got := ParentEmailOf("someone@example.com"); got != "someone@example.com" {
		t.Errorf("ParentEmailOf returned %q for a non-placeholder address", got)
	}
}

func TestNotificationEmail(t *testing.T) {
	parent := Member{Email: "parent@example.com", Role: RoleParent}
	if got := parent.NotificationEmail(); got != "parent@example.com" {
		t.Errorf("parent NotificationEmail = %q, want parent@example.com", got)
	}

	child := Member{
		Email: ChildEmail("parent@example.com", "01HZXW8E5VQ4T0J9M3N6P7R8S9"),
		Role:  RoleChild,
	}
	if got := child.NotificationEmail(); got != "parent@example.com" {
		t.Errorf("child NotificationEmail = %q, want parent@example.com", got)
	}
}
