package normalize

import "testing"

func TestName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"AGESP ATTIVITA' STRUMENTALI SRL", "agesp attivita strumentali"},
		{"Maggioli S.p.A.", "maggioli"},
		{"Società Cooperativa Rò-Verde", "societa cooperativa ro verde"},
		{"  Enel   Energia  ", "enel energia"},
		{"A/B Servizi s.r.l.", "a b servizi"},
		{"ACME S,R,L", "acme"},
		{"BETA S;P;A", "beta"},
		{"GAMMA s'r'l", "gamma"},
		{"", ""},
		{"...", ""},
	}
	for _, tc := range cases {
		if got := Name(tc.in); got != tc.want {
			t.Errorf("Name(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNameIdempotent(t *testing.T) {
	inputs := []string{
		"AGESP ATTIVITA' STRUMENTALI SRL",
		"Università Cattolica del Sacro Cuore",
		"Comune di Busto Arsizio",
		"srl spa",
		"ACME S,R,L",
		"BETA S;P;A",
		"s'r'l",
		"",
	}
	for _, in := range inputs {
		once := Name(in)
		if twice := Name(once); twice != once {
			t.Errorf("Name not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestCacheKey(t *testing.T) {
	if got := CacheKey("  Quanto si è SPESO per Agesp nel 2023?  "); got != "quanto si è speso per agesp nel 2023?" {
		t.Errorf("CacheKey = %q", got)
	}
	// Punctuation stays: cache keys are deliberately lighter than Name.
	if CacheKey("chi e agesp") == CacheKey("chi e agesp?") {
		t.Error("cache keys differing only in punctuation must stay distinct")
	}
}
