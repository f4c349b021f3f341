package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Ada@Example.COM ", "ada@example.com"},
		{"plain@example.com", "plain@example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Email(tt.in); got != tt.want {
			t.Errorf("Email(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Ada   Lovelace ", "Ada Lovelace"},
		{"One", "One"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Name(tt.in); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInviteCode(t *testing.T) {
	if got := InviteCode(" ab12cd \n"); got != "AB12CD" {
		t.Errorf("InviteCode = %q, want %q", got, "AB12CD")
	}
}
