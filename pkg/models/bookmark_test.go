package models

import "testing"

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://example.com",
		"http://example.com/path?q=1",
		"https://sub.example.com:8443/deep/path",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q): unexpected error: %v", u, err)
		}
	}

	invalid := []string{
		"",
		"example.com",
		"ftp://example.com",
		"javascript:alert(1)",
		"//example.com",
		"https://",
	}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q): expected error", u)
		}
	}
}

func TestBookmarkValidate(t *testing.T) {
	b := Bookmark{URL: "https://example.com", Title: "Example"}
	if err := b.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b.Title = "  "
	if err := b.Validate(); err == nil {
		t.Error("expected error for blank title")
	}

	b.Title = "Example"
	b.FaviconURL = "not-a-url"
	if err := b.Validate(); err == nil {
		t.Error("expected error for invalid favicon URL")
	}
}
