package textutil

import (
	"reflect"
	"testing"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Hello world", "Hello world"},
		{"entities in plain text", "Q&amp;A included", "Q&A included"},
		{"paragraphs", "<p>First</p><p>Second</p>", "First\n\nSecond"},
		{"line break", "Line one<br>Line two", "Line one\nLine two"},
		{"script removed", "<p>Safe</p><script>alert(1)</script>", "Safe"},
		{"style removed", "<style>p{color:red}</style><p>Text</p>", "Text"},
		{"inline tags", "<p>A <strong>bold</strong> move</p>", "A bold move"},
		{"list", "<ul><li>One</li><li>Two</li></ul>", "One\n\nTwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTMLToText(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParagraphs(t *testing.T) {
	got := Paragraphs("<p>Payment is due on signing.</p>\n<p>Cancellation within 30 days forfeits the deposit.</p>")
	expected := []string{
		"Payment is due on signing.",
		"Cancellation within 30 days forfeits the deposit.",
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}

	if got := Paragraphs("   "); got != nil {
		t.Errorf("expected nil for blank input, got %v", got)
	}

	plain := Paragraphs("One paragraph.\n\nAnother one.")
	if len(plain) != 2 {
		t.Errorf("expected 2 plain-text paragraphs, got %v", plain)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("<p>Short bio</p>", 50); got != "Short bio" {
		t.Errorf("expected untouched short text, got %q", got)
	}
	got := Excerpt("Futurist and author who advises Fortune 500 boards on AI strategy", 30)
	if got != "Futurist and author who..." {
		t.Errorf("unexpected excerpt %q", got)
	}
}
