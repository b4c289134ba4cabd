package parse

import "testing"

func TestAbbrevFloat(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4.50", 4.50, true},
		{"1,234.5", 1234.5, true},
		{"$12.30", 12.3, true},
		{"+0.45", 0.45, true},
		{"850K", 850_000, true},
		{"50M", 50_000_000, true},
		{"1.2B", 1_200_000_000, true},
		{"3.4m", 3_400_000, true},
		{"(1.5M)", -1_500_000, true},
		{"($2,000)", -2000, true},
		{"", 0, false},
		{"-", 0, false},
		{"N/A", 0, false},
		{"abcM", 0, false},
	}

	for _, tc := range cases {
		got, ok := AbbrevFloat(tc.in)
		if ok != tc.ok {
			t.Errorf("AbbrevFloat(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("AbbrevFloat(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAbbrevInt(t *testing.T) {
	got, ok := AbbrevInt("12.5K")
	if !ok || got != 12500 {
		t.Errorf("AbbrevInt(12.5K) = %d, %v; want 12500, true", got, ok)
	}
	if _, ok := AbbrevInt("junk"); ok {
		t.Error("AbbrevInt(junk) should not parse")
	}
}
