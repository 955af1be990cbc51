package normalize

import "testing"

func TestKey_Table(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{"identity ascii", "wereng coklat", "wereng coklat"},
		{"utf8 repair drops invalid bytes", string([]byte{0xff, 't', 'i', 0x80, 'k', 'u', 's'}), "tikus"},
		{"case fold", "WaLaNg SaNgIt", "walang sangit"},
		{"remove zero-widths", "tik\u200bu\ufeffs", "tikus"},
		{"strip accents precomposed", "P\u00e9nggerek", "penggerek"},
		{"strip accents combining", "Pe\u0301nggerek", "penggerek"},
		{"fullwidth", "\uff29\uff2d\uff27\uff3f\uff10\uff10\uff11", "img_001"},
		{"collapse whitespace", "  ulat \t grayak\n", "ulat grayak"},
		{"digits are kept", "IMG_1234.JPG", "img_1234.jpg"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Key(tc.in); got != tc.out {
				t.Fatalf("Key(%q) = %q, want %q", tc.in, got, tc.out)
			}
		})
	}
}

func TestKey_Idempotent(t *testing.T) {
	for _, s := range []string{"Wereng Hijau", "\uff33\uff21\uff37\uff21\uff28", "K\u00e9ong  Mas"} {
		once := Key(s)
		if twice := Key(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", s, once, twice)
		}
	}
}

func TestMatcher(t *testing.T) {
	m := NewMatcher("  WERENG ")
	if m.Empty() {
		t.Fatal("matcher should not be empty")
	}
	if !m.Match("sawah.jpg", "Wereng Coklat") {
		t.Fatal("expected label match")
	}
	if m.Match("sawah.jpg", "Tikus Sawah") {
		t.Fatal("unexpected match")
	}
	if !NewMatcher("sawah").Match("SAWAH_PAGI.jpg") {
		t.Fatal("expected filename match")
	}

	blank := NewMatcher(" \t ")
	if !blank.Empty() || !blank.Match() {
		t.Fatal("blank matcher must match everything")
	}
}
