package codes

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		prefix string
		width  int
		n      int64
		want   string
	}{
		{"UHID", 6, 1, "UHID000001"},
		{"UHID", 6, 123, "UHID000123"},
		{"ICD", 4, 42, "ICD0042"},
		{"ICD", 4, 99999, "ICD99999"},
		{"RCT", 5, 0, "RCT00000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Format(tt.prefix, tt.width, tt.n); got != tt.want {
				t.Errorf("Format(%q, %d, %d) = %q, want %q", tt.prefix, tt.width, tt.n, got, tt.want)
			}
		})
	}
}

func TestSuffixPattern(t *testing.T) {
	if got := SuffixPattern("UHID"); got != "^UHID[0-9]+$" {
		t.Errorf("unexpected pattern %q", got)
	}

	// regex metacharacters in a prefix must be escaped
	if got := SuffixPattern("A.B"); got != `^A\.B[0-9]+$` {
		t.Errorf("unexpected pattern %q", got)
	}
}
