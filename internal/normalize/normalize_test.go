package normalize

import "testing"

func TestText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"diacritics", "Proteção", "protecao"},
		{"case folding", "SEGURO Empresarial", "seguro empresarial"},
		{"punctuation", "Olá, tudo bem?!", "ola tudo bem"},
		{"trim", "  valeu  ", "valeu"},
		{"mixed", "Não, obrigado!", "nao obrigado"},
		{"cedilla and tilde", "coberturas de proteção São Paulo", "coberturas de protecao sao paulo"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Text(tc.in); got != tc.want {
				t.Errorf("Text(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTextIdempotent(t *testing.T) {
	inputs := []string{
		"Proteção Empresarial!",
		"tá bom, obrigado",
		"POR ENQUANTO É SÓ",
		"quero saber sobre planos.",
		"ção ÇÃO çã",
	}
	for _, in := range inputs {
		once := Text(in)
		twice := Text(once)
		if once != twice {
			t.Errorf("Text not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
