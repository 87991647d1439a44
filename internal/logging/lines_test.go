package logging

import "testing"

func TestLinesPrefixAndForward(t *testing.T) {
	var got []string
	lf := Lines("chatgpt", func(s string) { got = append(got, s) })

	lf.Printf("waiting %d", 3)
	lf("done\n")

	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	if got[0] != "chatgpt: waiting 3" {
		t.Errorf("unexpected first line: %q", got[0])
	}
}

func TestNilLineFunc(t *testing.T) {
	var lf LineFunc
	lf.Printf("no panic %s", "please")
}

func TestHasFmtVerb(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"plain", false},
		{"value %d", true},
		{"100%% done", false},
		{"%v", true},
	}
	for _, tt := range tests {
		if got := hasFmtVerb(tt.in); got != tt.want {
			t.Errorf("hasFmtVerb(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
