package decider

import (
	"sort"
	"strings"

	"github.com/zapdesk/zapdesk/core"
)

// Classifier infers the intent of a message against the intents declared by a
// set of agents. Implementations must be deterministic: the decider is
// evaluated synchronously per message and never calls the language model.
type Classifier interface {
	Classify(message string, agents []core.AgentDefinition) string
}

// KeywordClassifierOptions configures the lexicon of the keyword classifier.
type KeywordClassifierOptions struct {
	// Lexicon maps an intent label to trigger words beyond the label itself.
	// Entries are merged over the built-in defaults; assigning nil to a label
	// removes its defaults.
	Lexicon map[string][]string
}

// defaultLexicon covers the intents shipped with the stock catalog, in
// Portuguese and English. Tenants with custom intents extend it via options.
var defaultLexicon = map[string][]string{
	"support": {"ajuda", "problema", "erro", "suporte", "funciona", "help", "broken", "issue", "bug"},
	"sales":   {"comprar", "preço", "preco", "plano", "assinar", "venda", "buy", "price", "pricing", "upgrade"},
	"billing": {"fatura", "cobrança", "cobranca", "pagamento", "boleto", "invoice", "charge", "payment", "refund"},
	"faq":     {"dúvida", "duvida", "horário", "horario", "endereço", "endereco", "question", "hours"},
}

// KeywordClassifier scores intents by token overlap between the message and
// an intent lexicon, breaking ties by the order intents appear across the
// agent set. It is a lightweight stand-in for a trained classifier and is
// fully deterministic.
type KeywordClassifier struct {
	lexicon map[string][]string
}

// NewKeywordClassifier builds a classifier with the default lexicon merged
// with any overrides.
func NewKeywordClassifier(optFns ...func(o *KeywordClassifierOptions)) *KeywordClassifier {
	opts := KeywordClassifierOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	lexicon := make(map[string][]string, len(defaultLexicon))
	for intent, words := range defaultLexicon {
		lexicon[intent] = words
	}
	for intent, words := range opts.Lexicon {
		lexicon[intent] = words
	}
	return &KeywordClassifier{lexicon: lexicon}
}

// Classify returns the best-matching intent label declared by any of the
// given agents, or "" when nothing matches.
func (k *KeywordClassifier) Classify(message string, agents []core.AgentDefinition) string {
	tokens := tokenize(message)
	if len(tokens) == 0 {
		return ""
	}

	// Collect candidate intents preserving first-seen order for stable
	// tie-breaking.
	var order []string
	seen := map[string]bool{}
	for _, a := range agents {
		for _, intent := range a.Intents {
			if !seen[intent] {
				seen[intent] = true
				order = append(order, intent)
			}
		}
	}

	scores := make(map[string]int, len(order))
	for _, intent := range order {
		score := 0
		if tokens[strings.ToLower(intent)] {
			score += 2
		}
		for _, w := range k.lexicon[intent] {
			if tokens[w] {
				score++
			}
		}
		scores[intent] = score
	}

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	if len(order) == 0 || scores[order[0]] == 0 {
		return ""
	}
	return order[0]
}

// tokenize lowercases the message and splits it on non-letter/digit runes,
// returning a set for O(1) membership checks.
func tokenize(message string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !isWordRune(r)
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r >= 'à' && r <= 'ÿ': // accented latin letters common in pt-BR
		return true
	default:
		return false
	}
}
