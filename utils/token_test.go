package utils

import (
	"strings"
	"testing"
)

func TestGenerateSessionTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateSessionToken()
		if err != nil {
			t.Fatalf("GenerateSessionToken: %v", err)
		}
		if !strings.HasPrefix(token, "sess_") {
			t.Fatalf("token missing prefix: %q", token)
		}
		if len(token) < len("sess_")+48 {
			t.Fatalf("token too short: %q", token)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %q", token)
		}
		seen[token] = true
	}
}

func TestGenerateTicketNumberShape(t *testing.T) {
	for i := 0; i < 20; i++ {
		n := GenerateTicketNumber()
		if !strings.HasPrefix(n, "TKT-") {
			t.Fatalf("ticket number missing prefix: %q", n)
		}
		digits := strings.TrimPrefix(n, "TKT-")
		if len(digits) != 9 {
			t.Fatalf("expected 9 digit body, got %q", n)
		}
		for _, r := range digits {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in ticket number: %q", n)
			}
		}
	}
}
