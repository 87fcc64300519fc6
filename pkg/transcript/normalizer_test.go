package transcript

import (
	"strings"
	"testing"
)

func TestNormalize_StripsMarkers(t *testing.T) {
	result := Normalize([]Segment{
		seg(0, 5, "[Music] Welcome back everyone."),
		seg(5, 10, "Today we cover chunking (applause) in depth."),
		seg(10, 15, "The   spacing    here is   messy."),
	})

	if len(result.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(result.Segments))
	}
	if got := result.Segments[0].Text; got != "Welcome back everyone." {
		t.Errorf("bracket marker not stripped: %q", got)
	}
	if got := result.Segments[1].Text; got != "Today we cover chunking in depth." {
		t.Errorf("paren marker not stripped: %q", got)
	}
	if got := result.Segments[2].Text; got != "The spacing here is messy." {
		t.Errorf("whitespace not collapsed: %q", got)
	}
	if result.Redacted {
		t.Error("nothing should be redacted here")
	}
}

func TestNormalize_DropsInvalidRanges(t *testing.T) {
	result := Normalize([]Segment{
		seg(10, 5, "End before start."),
		seg(7, 7, "Zero duration."),
		seg(0, 5, "This one is fine."),
	})

	if len(result.Segments) != 1 {
		t.Fatalf("expected 1 surviving segment, got %d", len(result.Segments))
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %v", len(result.Warnings), result.Warnings)
	}
}

func TestNormalize_DropsEmptyAfterCleaning(t *testing.T) {
	result := Normalize([]Segment{
		seg(0, 5, "[Music]"),
		seg(5, 10, "Real speech follows."),
	})
	if len(result.Segments) != 1 {
		t.Fatalf("expected marker-only segment dropped, got %d segments", len(result.Segments))
	}
}

func TestRedactPII(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		placeholder string
	}{
		{"email", "Contact me at jane.doe@example.edu for slides.", "[REDACTED_EMAIL]"},
		{"phone", "Call 555-867-5309 with questions.", "[REDACTED_PHONE]"},
		{"ssn", "His SSN is 123-45-6789 apparently.", "[REDACTED_SSN]"},
		{"card", "Card number 4111 1111 1111 1111 was shown.", "[REDACTED_CARD]"},
		{"ipv4", "The server lives at 192.168.10.14 internally.", "[REDACTED_IP]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, redacted := RedactPII(tt.in)
			if !redacted {
				t.Fatal("expected redaction to be reported")
			}
			if !strings.Contains(got, tt.placeholder) {
				t.Errorf("expected %s in output, got %q", tt.placeholder, got)
			}
		})
	}
}

func TestRedactPII_CleanTextUntouched(t *testing.T) {
	in := "Photosynthesis happens in chapter 12, slide 4."
	got, redacted := RedactPII(in)
	if redacted {
		t.Error("clean text must not be reported as redacted")
	}
	if got != in {
		t.Errorf("clean text must pass through unchanged, got %q", got)
	}
}

func TestNormalize_SetsRedactedFlag(t *testing.T) {
	result := Normalize([]Segment{
		seg(0, 5, "Email the TA at ta@university.edu please."),
	})
	if !result.Redacted {
		t.Error("redaction flag must be set")
	}
	if !strings.Contains(result.Segments[0].Text, "[REDACTED_EMAIL]") {
		t.Errorf("segment should carry the placeholder, got %q", result.Segments[0].Text)
	}
}
