package clashapi

import "testing"

func TestSanitizeTag(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "bare tag", input: "c890u22v", want: "#C890U22V", wantOK: true},
		{name: "hash prefix kept canonical", input: "#C890U22V", want: "#C890U22V", wantOK: true},
		{name: "o replaced with zero", input: "#o2qL9cgy", want: "#02QL9CGY", wantOK: true},
		{name: "surrounding whitespace", input: "  #2abc  ", want: "#2ABC", wantOK: true},
		{name: "invalid character", input: "#2ABX", wantOK: false},
		{name: "empty", input: "", wantOK: false},
		{name: "only hash", input: "#", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SanitizeTag(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("SanitizeTag(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("SanitizeTag(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEncodeTag(t *testing.T) {
	if got := EncodeTag("#C890U22V"); got != "%23C890U22V" {
		t.Errorf("EncodeTag with hash = %q, want %%23C890U22V", got)
	}
	if got := EncodeTag("c890u22v"); got != "%23C890U22V" {
		t.Errorf("EncodeTag without hash = %q, want %%23C890U22V", got)
	}
}

func TestParseBattleTime(t *testing.T) {
	got, err := ParseBattleTime("20250922T153747.000Z")
	if err != nil {
		t.Fatalf("ParseBattleTime error: %v", err)
	}
	if got.Format("2006-01-02T15:04:05.000Z") != "2025-09-22T15:37:47.000Z" {
		t.Errorf("parsed instant = %v, want 2025-09-22T15:37:47.000Z", got)
	}
	if _, err := ParseBattleTime("2025-09-22T15:37:47Z"); err == nil {
		t.Errorf("expected error for RFC3339 input, got nil")
	}
	if _, err := ParseBattleTime("garbage"); err == nil {
		t.Errorf("expected error for garbage input, got nil")
	}
}
