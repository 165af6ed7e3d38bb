package rules

import (
	"testing"

	"github.com/mikey/email-onebox/internal/core"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestChecker_Lookup(t *testing.T) {
	c := NewChecker(map[string]string{
		"promo.example.com": "spam",
		"@partner.io":       "Interested",
		"bad.org":           "Maybe",
	}, zap.NewNop())

	tests := []struct {
		from  string
		label core.Label
		ok    bool
	}{
		{"deals@promo.example.com", core.LabelSpam, true},
		{"Deals <deals@PROMO.example.com>", core.LabelSpam, true},
		{"ceo@eu.partner.io", core.LabelInterested, true},
		{"someone@example.com", "", false},
		{"x@bad.org", "", false},
		{"not-an-address", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			label, ok := c.Lookup(tt.from)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestChecker_Empty(t *testing.T) {
	c := NewChecker(nil, nil)
	_, ok := c.Lookup("a@b.com")
	assert.False(t, ok)
}
