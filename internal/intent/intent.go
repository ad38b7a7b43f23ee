// Package intent classifies normalized free-form messages from known
// customers into closing, catalog-request or open-ended turns.
package intent

import (
	"strings"

	"github.com/seguroscampos/atendente/internal/normalize"
)

// Kind is the outcome of classifying one message.
type Kind string

const (
	// KindClosing ends the conversation politely.
	KindClosing Kind = "closing"
	// KindCatalog asks for the product catalog.
	KindCatalog Kind = "catalog"
	// KindOpenEnded falls through to the LLM responder.
	KindOpenEnded Kind = "open_ended"
)

// rule pairs an outcome with the substrings that trigger it.
type rule struct {
	kind   Kind
	tokens []string
}

// rules is evaluated top to bottom and the first match wins, so a
// message carrying both a closing and a catalog token ("obrigado pelo
// plano") always classifies as closing.
var rules = []rule{
	{KindClosing, []string{"não", "nao", "tá bom", "por enquanto é só", "só isso", "valeu", "obrigado", "agradeço"}},
	{KindCatalog, []string{"plano", "seguro", "cobertura", "proteção", "serviço"}},
}

func init() {
	// Tokens are matched against normalized text, so they must be
	// folded the same way or the accented ones could never match.
	for _, r := range rules {
		for i, tok := range r.tokens {
			r.tokens[i] = normalize.Text(tok)
		}
	}
}

// Classify returns the intent of a message already folded by
// normalize.Text. Text that triggers no rule is open-ended.
func Classify(normalized string) Kind {
	for _, r := range rules {
		for _, tok := range r.tokens {
			if strings.Contains(normalized, tok) {
				return r.kind
			}
		}
	}
	return KindOpenEnded
}
