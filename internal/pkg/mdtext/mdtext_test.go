package mdtext

import (
	"strings"
	"testing"
)

func TestExtractStripsFormatting(t *testing.T) {
	in := "# Weekly Plan\n\nSome **bold** and *italic* text with a [link](https://example.com).\n"
	got := Extract(in)
	if strings.Contains(got, "#") || strings.Contains(got, "**") || strings.Contains(got, "](") {
		t.Fatalf("markup leaked into output: %q", got)
	}
	if !strings.Contains(got, "Weekly Plan") || !strings.Contains(got, "bold") || !strings.Contains(got, "link") {
		t.Fatalf("text content missing: %q", got)
	}
}

func TestExtractKeepsCodeBlockText(t *testing.T) {
	in := "Before\n\n```go\nfmt.Println(\"hi\")\n```\n\nAfter"
	got := Extract(in)
	if strings.Contains(got, "```") {
		t.Fatalf("fence leaked: %q", got)
	}
	if !strings.Contains(got, `fmt.Println("hi")`) {
		t.Fatalf("code text missing: %q", got)
	}
}

func TestExtractListItems(t *testing.T) {
	got := Extract("- one\n- two\n- three\n")
	for _, want := range []string{"one", "two", "three"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
	if strings.Contains(got, "-") {
		t.Fatalf("bullet marker leaked: %q", got)
	}
}

func TestExtractPlainTextPassthrough(t *testing.T) {
	got := Extract("just a sentence")
	if got != "just a sentence" {
		t.Fatalf("got %q", got)
	}
}
