package diagram

import (
	"strings"
	"testing"
)

func TestDecodeContentRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{"simple model", `<mxGraphModel><root><mxCell id="0"/></root></mxGraphModel>`},
		{"special chars", `<mxCell value="a &amp; b" style="link=https%3A%2F%2Fexample.com;"/>`},
		{"unicode", `<mxCell value="café → über"/>`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeContent(tt.markup)
			if err != nil {
				t.Fatalf("EncodeContent failed: %v", err)
			}
			if got := DecodeContent(encoded); got != tt.markup {
				t.Errorf("round trip = %q, want %q", got, tt.markup)
			}
		})
	}
}

func TestDecodeContentFallback(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"plain markup", `<mxGraphModel><root/></mxGraphModel>`},
		{"not base64", "!!! definitely not base64 !!!"},
		{"base64 but not deflate", "aGVsbG8gd29ybGQ="},
		{"bad percent escape", "%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Undecodable content must come back unmodified, never error.
			if got := DecodeContent(tt.input); got != tt.input {
				t.Errorf("DecodeContent(%q) = %q, want input unchanged", tt.input, got)
			}
		})
	}
}

func TestDecodeContentEmpty(t *testing.T) {
	if got := DecodeContent(""); got != "" {
		t.Errorf("DecodeContent(\"\") = %q, want \"\"", got)
	}
}

func TestDecodeContentIgnoresWhitespace(t *testing.T) {
	encoded, err := EncodeContent(`<mxGraphModel><root/></mxGraphModel>`)
	if err != nil {
		t.Fatal(err)
	}
	// Editors wrap long base64 payloads; the decoder must tolerate that.
	wrapped := "  " + encoded + "\n"
	if got := DecodeContent(wrapped); !strings.Contains(got, "<mxGraphModel>") {
		t.Errorf("wrapped payload did not decode: %q", got)
	}
}
