package normalize

import "testing"

func TestNormalize(t *testing.T) {
	n := NewItalianCities()
	cases := []struct {
		in, want string
	}{
		{"Milano", "milano"},
		{"  MILANO  ", "milano"},
		{"Comune di Milano", "milano"},
		{"Città di Forlì", "forli"},
		{"Frazione San Giovanni", "san giovanni"},
		{"Sant'Angelo  Lodigiano", "sant'angelo lodigiano"},
	}
	for _, tc := range cases {
		if got := n.Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSame(t *testing.T) {
	n := NewItalianCities()
	if !Same(n, "Comune di Forlì", "FORLI") {
		t.Fatal("prefix and accent variants should compare equal")
	}
	if Same(n, "Milano", "Monza") {
		t.Fatal("distinct cities compared equal")
	}
}
