package util

import (
	"strings"
	"testing"
)

func TestNormalizeInput(t *testing.T) {
	input := "hello\nworld <script>"
	result := NormalizeInput(input)

	if strings.Contains(result, "\n") {
		t.Errorf("Expected newlines to be removed, got '%s'", result)
	}
	if strings.Contains(result, "<script>") {
		t.Errorf("Expected HTML to be escaped, got '%s'", result)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":          "hello-world",
		"  Trimmed  Title  ":   "trimmed-title",
		"Special!@#Characters": "special-characters",
		"already-a-slug":       "already-a-slug",
	}

	for input, expected := range cases {
		if got := Slugify(input); got != expected {
			t.Errorf("Slugify(%q) = %q, expected %q", input, got, expected)
		}
	}
}

func TestMentionHandles(t *testing.T) {
	text := "hello @alice@example.com and @bob@other.org, how are you?"
	handles := MentionHandles(text)

	if len(handles) != 2 {
		t.Fatalf("Expected 2 handles, got %d: %v", len(handles), handles)
	}
	if handles[0] != "@alice@example.com" {
		t.Errorf("Expected '@alice@example.com', got '%s'", handles[0])
	}
	if handles[1] != "@bob@other.org" {
		t.Errorf("Expected '@bob@other.org', got '%s'", handles[1])
	}
}

func TestMentionHandlesNone(t *testing.T) {
	handles := MentionHandles("no mentions here")
	if len(handles) != 0 {
		t.Errorf("Expected no handles, got %v", handles)
	}
}

func TestGetNameAndVersion(t *testing.T) {
	nv := GetNameAndVersion()
	if !strings.HasPrefix(nv, Name) {
		t.Errorf("Expected prefix '%s', got '%s'", Name, nv)
	}
}
