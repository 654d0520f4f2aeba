package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"us national", "212 555 0123", "+12125550123"},
		{"formatted us", "(212) 555-0123", "+12125550123"},
		{"already e164", "+12125550123", "+12125550123"},
		{"invalid area code", "(555) 867-5309", "(555) 867-5309"},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"garbage preserved", "not-a-number", "not-a-number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeE164(tt.input); got != tt.want {
				t.Errorf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeE164ValidNumbers(t *testing.T) {
	// Real assignable numbers should come back in E.164.
	if got := NormalizeE164("+44 20 7946 0958"); got != "+442079460958" {
		t.Errorf("uk number = %q, want +442079460958", got)
	}
}
