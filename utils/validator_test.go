package utils

import "testing"

func TestDigitsOnly(t *testing.T) {
	cases := map[string]string{
		"(987) 654-3210":  "9876543210",
		"+91 98765 43210": "919876543210",
		"no digits":       "",
		"987.654.3210":    "9876543210",
	}
	for input, want := range cases {
		if got := DigitsOnly(input); got != want {
			t.Errorf("DigitsOnly(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestIsValidPhone(t *testing.T) {
	valid := []string{"9876543210", "987-654-3210", "(987) 654 3210"}
	for _, s := range valid {
		if !IsValidPhone(s) {
			t.Errorf("IsValidPhone(%q) = false, want true", s)
		}
	}
	invalid := []string{"12345", "98765432101", "", "abc"}
	for _, s := range invalid {
		if IsValidPhone(s) {
			t.Errorf("IsValidPhone(%q) = true, want false", s)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.com", "first.last@sub.domain.org", " padded@example.com "}
	for _, s := range valid {
		if !IsValidEmail(s) {
			t.Errorf("IsValidEmail(%q) = false, want true", s)
		}
	}
	invalid := []string{"plain", "missing@tld", "two@@example.com", "spaces in@example.com"}
	for _, s := range invalid {
		if IsValidEmail(s) {
			t.Errorf("IsValidEmail(%q) = true, want false", s)
		}
	}
}

func TestValidateStruct(t *testing.T) {
	type form struct {
		Username string `validate:"required"`
		Password string `validate:"required,pwdmin"`
		Phone    string `validate:"phone10"`
		Email    string `validate:"emailok"`
	}

	if err := ValidateStruct(&form{Username: "u", Password: "secret1"}); err != nil {
		t.Errorf("expected valid form, got %v", err)
	}
	if err := ValidateStruct(&form{Password: "secret1"}); err == nil {
		t.Error("expected error for missing username")
	}
	if err := ValidateStruct(&form{Username: "u", Password: "short"}); err == nil {
		t.Error("expected error for short password")
	}
	if err := ValidateStruct(&form{Username: "u", Password: "secret1", Phone: "123"}); err == nil {
		t.Error("expected error for bad phone")
	}
	if err := ValidateStruct(&form{Username: "u", Password: "secret1", Email: "nope"}); err == nil {
		t.Error("expected error for bad email")
	}
	if err := ValidateStruct("not a struct"); err == nil {
		t.Error("expected error for non-struct input")
	}
}
