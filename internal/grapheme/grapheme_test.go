package grapheme

import "testing"

func TestLast(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a", "a"},
		{"abc", "c"},
		{"héllo", "o"},
		{"café", "é"},       // combining acute accent
		{"ab\U0001F600", "\U0001F600"},  // emoji outside the BMP
		{"\U0001F1EB\U0001F1F7", "\U0001F1EB\U0001F1F7"}, // regional indicator pair
	}
	for _, c := range cases {
		if got := Last(c.in); got != c.want {
			t.Errorf("Last(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFirst(t *testing.T) {
	if got := First("éxyz"); got != "é" {
		t.Fatalf("First = %q, want %q", got, "é")
	}
	if got := First(""); got != "" {
		t.Fatalf("First(\"\") = %q, want \"\"", got)
	}
}

func TestCount(t *testing.T) {
	if got := Count("café"); got != 4 {
		t.Fatalf("Count = %d, want 4", got)
	}
	if got := Count(""); got != 0 {
		t.Fatalf("Count(\"\") = %d, want 0", got)
	}
}
