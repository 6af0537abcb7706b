package capability

import (
	"bytes"
	"reflect"
	"testing"
)

func TestOpenCommand(t *testing.T) {
	tests := []struct {
		goos     string
		wantName string
		wantArgs []string
		wantErr  bool
	}{
		{"darwin", "open", []string{"/tmp/x.json"}, false},
		{"linux", "xdg-open", []string{"/tmp/x.json"}, false},
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", "/tmp/x.json"}, false},
		{"plan9", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := openCommand(tt.goos, "/tmp/x.json")
			if (err != nil) != tt.wantErr {
				t.Fatalf("openCommand(%q) error = %v, wantErr %v", tt.goos, err, tt.wantErr)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestTerminalBell(t *testing.T) {
	var buf bytes.Buffer
	if err := (TerminalBell{W: &buf}).Ring(); err != nil {
		t.Fatalf("Ring() error: %v", err)
	}
	if buf.String() != "\a" {
		t.Errorf("Ring() wrote %q, want BEL", buf.String())
	}
}

func TestDetect_VoiceAbsent(t *testing.T) {
	s := Detect()
	if s.Voice != nil {
		t.Error("Voice should never be available in a terminal")
	}
	if s.Bell == nil {
		t.Error("Bell should always be available")
	}
}
