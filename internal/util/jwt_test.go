package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(7, "+919876543210", "secret")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	userID, phone, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if userID != 7 || phone != "+919876543210" {
		t.Fatalf("got (%d, %q)", userID, phone)
	}
}

func TestJWTWrongSecretRejected(t *testing.T) {
	token, err := GenerateJWT(7, "+919876543210", "secret")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	if _, _, err := ParseJWT(token, "other-secret"); err == nil {
		t.Fatal("token accepted with wrong secret")
	}
}

func TestJWTUnregisteredUser(t *testing.T) {
	token, err := GenerateJWT(0, "+919876543210", "secret")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	userID, _, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if userID != 0 {
		t.Fatalf("userID = %d, want 0 before registration", userID)
	}
}

func TestExtractToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"", ""},
		{"Bearer", ""},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		if got := ExtractToken(r); got != tc.want {
			t.Errorf("ExtractToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
