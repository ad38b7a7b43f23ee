package api

import "testing"

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"120", 120},
		{"120.50", 120.5},
		{"120,50", 120.5},
		{"R$ 99,90", 99.9},
		{"  R$120  ", 120},
	}
	for _, c := range cases {
		got, err := parsePrice(c.in)
		if err != nil {
			t.Errorf("parsePrice(%q) returned error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("parsePrice(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParsePriceRejectsGarbage(t *testing.T) {
	if _, err := parsePrice("caro demais"); err == nil {
		t.Error("expected error for non-numeric price")
	}
}

func TestFormatPrice(t *testing.T) {
	if got := formatPrice(89.9); got != "R$ 89.90" {
		t.Errorf("formatPrice(89.9) = %q", got)
	}
	if got := formatPrice(120); got != "R$ 120.00" {
		t.Errorf("formatPrice(120) = %q", got)
	}
}
