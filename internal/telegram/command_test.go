package telegram

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Command
	}{
		{
			name: "bare command",
			text: "/start",
			want: Command{Name: "start"},
		},
		{
			name: "command with url",
			text: "/screen example.com",
			want: Command{Name: "screen", Arg: "example.com"},
		},
		{
			name: "botname suffix stripped",
			text: "/screen@snapvision_bot example.com",
			want: Command{Name: "screen", Arg: "example.com"},
		},
		{
			name: "mobile flag",
			text: "/screen example.com --mobile",
			want: Command{Name: "screen", Arg: "example.com", Mobile: true},
		},
		{
			name: "pdf flag",
			text: "/screen example.com --pdf",
			want: Command{Name: "screen", Arg: "example.com", Format: "pdf"},
		},
		{
			name: "russian alias",
			text: "/скрин example.com",
			want: Command{Name: "скрин", Arg: "example.com"},
		},
		{
			name: "uppercase command normalized",
			text: "/SCREEN example.com",
			want: Command{Name: "screen", Arg: "example.com"},
		},
		{
			name: "empty text",
			text: "",
			want: Command{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCommand(tt.text)
			if got != tt.want {
				t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "example.com", want: "https://example.com"},
		{raw: "https://example.com", want: "https://example.com"},
		{raw: "http://example.com/page", want: "http://example.com/page"},
		{raw: "", wantErr: true},
		{raw: "   ", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ValidateURL(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ValidateURL(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ValidateURL(%q) unexpected error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidateURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestIsScreenshotCommand(t *testing.T) {
	if !IsScreenshotCommand("/screen example.com") {
		t.Errorf("expected /screen to match")
	}
	if !IsScreenshotCommand("/serp окна") {
		t.Errorf("expected /serp to match")
	}
	if IsScreenshotCommand("/weather moscow") {
		t.Errorf("expected /weather not to match")
	}
	if IsScreenshotCommand("hello") {
		t.Errorf("expected plain text not to match")
	}
}
