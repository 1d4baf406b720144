package message

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType string
		wantURLs []string
		wantErr  bool
	}{
		{
			name:     "skip-waiting",
			raw:      `{"type":"skip-waiting"}`,
			wantType: TypeSkipWaiting,
		},
		{
			name:     "clear-cache",
			raw:      `{"type":"clear-cache"}`,
			wantType: TypeClearCache,
		},
		{
			name:     "cache-urls with list",
			raw:      `{"type":"cache-urls","urls":["/portal/help","/portal/faq"]}`,
			wantType: TypeCacheURLs,
			wantURLs: []string{"/portal/help", "/portal/faq"},
		},
		{
			name:     "unknown type decodes",
			raw:      `{"type":"rotate-keys"}`,
			wantType: "rotate-keys",
		},
		{
			name:     "extra fields ignored",
			raw:      `{"type":"skip-waiting","reason":"deploy","ttl":30}`,
			wantType: TypeSkipWaiting,
		},
		{
			name:    "malformed JSON",
			raw:     `{"type":`,
			wantErr: true,
		},
		{
			name:    "empty input",
			raw:     ``,
			wantErr: true,
		},
		{
			name:    "missing type",
			raw:     `{"urls":["/a"]}`,
			wantErr: true,
		},
		{
			name:    "wrong type shape",
			raw:     `{"type":42}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Decode([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrBadCommand) {
					t.Fatalf("Decode(%q) err = %v, want ErrBadCommand", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q): %v", tt.raw, err)
			}
			if cmd.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", cmd.Type, tt.wantType)
			}
			if len(cmd.URLs) != len(tt.wantURLs) {
				t.Fatalf("URLs = %v, want %v", cmd.URLs, tt.wantURLs)
			}
			for i, u := range tt.wantURLs {
				if cmd.URLs[i] != u {
					t.Errorf("URLs[%d] = %q, want %q", i, cmd.URLs[i], u)
				}
			}
		})
	}
}

func TestCommand_Known(t *testing.T) {
	tests := []struct {
		typ  string
		want bool
	}{
		{TypeSkipWaiting, true},
		{TypeClearCache, true},
		{TypeCacheURLs, true},
		{"rotate-keys", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := (Command{Type: tt.typ}).Known(); got != tt.want {
			t.Errorf("Known(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}
