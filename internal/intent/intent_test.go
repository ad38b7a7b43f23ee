package intent

import (
	"testing"

	"github.com/seguroscampos/atendente/internal/normalize"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Kind
	}{
		{"catalog plano", "quero saber sobre planos", KindCatalog},
		{"catalog seguro", "tem seguro de vida?", KindCatalog},
		{"catalog accented", "qual a proteção que vocês oferecem?", KindCatalog},
		{"closing obrigado", "obrigado", KindClosing},
		{"closing accented", "agradeço a atenção", KindClosing},
		{"closing phrase", "por enquanto é só", KindClosing},
		{"closing ta bom", "tá bom então", KindClosing},
		{"open ended", "como funciona o pagamento?", KindOpenEnded},
		{"empty", "", KindOpenEnded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(normalize.Text(tc.in)); got != tc.want {
				t.Errorf("Classify(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// A message containing both a closing token and a catalog token must
// classify as closing; rule order is the tie-break.
func TestClassifyClosingWinsOverCatalog(t *testing.T) {
	inputs := []string{
		"Obrigado pelo plano",
		"valeu pela cobertura!",
		"não quero seguro agora",
	}
	for _, in := range inputs {
		if got := Classify(normalize.Text(in)); got != KindClosing {
			t.Errorf("Classify(%q) = %q, want %q", in, got, KindClosing)
		}
	}
}
