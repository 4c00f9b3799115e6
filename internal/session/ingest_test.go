package session

import (
	"strings"
	"testing"
)

func collect(ls *lineSplitter, chunks ...string) []string {
	var out []string
	for _, c := range chunks {
		ls.feed([]byte(c), func(line string) { out = append(out, line) })
	}
	return out
}

func TestLineSplitter_SplitChunks(t *testing.T) {
	ls := &lineSplitter{max: 64}
	got := collect(ls, "7FF,0,0,DE", "ADBEEF\n100,0", ",0,01\n200")
	want := []string{"7FF,0,0,DEADBEEF", "100,0,0,01"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if string(ls.buf) != "200" {
		t.Errorf("expected partial line kept, got %q", ls.buf)
	}
}

func TestLineSplitter_OverlongLineDiscarded(t *testing.T) {
	ls := &lineSplitter{max: 8}
	got := collect(ls, strings.Repeat("A", 5), strings.Repeat("B", 5), "\n1,0,0,2\n")
	if len(got) != 1 || got[0] != "1,0,0,2" {
		t.Errorf("expected only the short line, got %v", got)
	}
}

func TestLineSplitter_EmptyLines(t *testing.T) {
	ls := &lineSplitter{max: 8}
	got := collect(ls, "\n\n")
	if len(got) != 2 || got[0] != "" || got[1] != "" {
		t.Errorf("expected two empty lines, got %q", got)
	}
}
