package decider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zapdesk/zapdesk/core"
)

func TestDefaultPendingResolver(t *testing.T) {
	r := DefaultPendingResolver{}
	action := core.PendingAction{
		AgentSlug: "sales",
		Kind:      "choose_plan",
		Options:   []string{"Starter", "Pro"},
	}

	tests := []struct {
		message string
		want    bool
	}{
		{"sim", true},
		{"Sim!", true},
		{"não", true},
		{"nao", true},
		{"yes", true},
		{"cancel", true},
		{"pro", true},
		{"  Starter ", true},
		{"me conta mais sobre os planos", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolves(action, tt.message))
		})
	}
}

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier()
	agents := eligibleSet()

	assert.Equal(t, "support", c.Classify("preciso de ajuda com um erro", agents))
	assert.Equal(t, "sales", c.Classify("qual o preço do plano pro?", agents))
	assert.Equal(t, "billing", c.Classify("minha fatura veio com cobrança errada", agents))
	assert.Equal(t, "", c.Classify("bom dia", agents))
	assert.Equal(t, "", c.Classify("", agents))
}

func TestKeywordClassifierCustomLexicon(t *testing.T) {
	c := NewKeywordClassifier(func(o *KeywordClassifierOptions) {
		o.Lexicon = map[string][]string{"delivery": {"entrega", "rastreio"}}
	})
	agents := []core.AgentDefinition{
		{Slug: "logistics", Intents: []string{"delivery"}},
	}
	assert.Equal(t, "delivery", c.Classify("cadê minha entrega?", agents))
}
