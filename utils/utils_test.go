package utils

import "testing"

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPasswordHash("correct horse battery staple", hash) {
		t.Error("correct password rejected")
	}
	if CheckPasswordHash("wrong password", hash) {
		t.Error("wrong password accepted")
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last+tag@sub.domain.org",
		"a_b-c%d@host.io",
	}
	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Errorf("%q rejected", email)
		}
	}

	invalid := []string{
		"",
		"plainaddress",
		"@no-local-part.com",
		"user@",
		"user@host",
		"user name@example.com",
	}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Errorf("%q accepted", email)
		}
	}
}
