package domain

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		country string
		want    string
		wantErr bool
	}{
		{name: "leading zero gets country code", raw: "03001234567", country: "92", want: "923001234567"},
		{name: "already international", raw: "923001234567", country: "92", want: "923001234567"},
		{name: "plus prefix stripped", raw: "+92 300 1234567", country: "92", want: "923001234567"},
		{name: "dashes and parens stripped", raw: "(0300) 123-4567", country: "92", want: "923001234567"},
		{name: "empty", raw: "", country: "92", wantErr: true},
		{name: "too short", raw: "12345", country: "92", wantErr: true},
		{name: "letters only", raw: "not a phone", country: "92", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw, tt.country)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizePhone(%q) = %q, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePhone(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
