package anonymize

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-io/obscura/document"
)

func TestTokenRegistryDeterministic(t *testing.T) {
	reg := NewTokenRegistry()

	first := reg.Token("jane@example.com", "Email Address")
	second := reg.Token("jane@example.com", "Email Address")
	assert.Equal(t, first, second, "same value must map to the same token within a run")

	assert.True(t, strings.HasPrefix(first, "[EMAIL_ADDRESS_"), "token = %s", first)
	assert.True(t, strings.HasSuffix(first, "]"))
	// Prefix + underscore + 8 hex chars + bracket.
	assert.Len(t, first, len("[EMAIL_ADDRESS_")+8+1)

	// The registry keys by value: a second mention with a different type
	// reuses the minted token verbatim.
	again := reg.Token("jane@example.com", "Email")
	assert.Equal(t, first, again)
	assert.Equal(t, 1, reg.Len())
}

func TestTokenRegistryFreshPerRun(t *testing.T) {
	// Two registries are independent: same value, same token text (pure
	// function of value and type) but no shared state.
	a := NewTokenRegistry()
	b := NewTokenRegistry()
	ta := a.Token("10.1.2.3", "IP Address")
	tb := b.Token("10.1.2.3", "IP Address")
	assert.Equal(t, ta, tb)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestTokenizeInjective(t *testing.T) {
	reg := NewTokenRegistry()
	seen := make(map[string]string, 10000)
	for i := 0; i < 10000; i++ {
		value := fmt.Sprintf("user%d@example-%d.com", i, i%977)
		token := reg.Token(value, "Email Address")
		if prior, dup := seen[token]; dup {
			t.Fatalf("token collision: %q and %q both map to %s", prior, value, token)
		}
		seen[token] = value
	}
}

func TestApplyEndToEnd(t *testing.T) {
	fullText := "Contact Jane Doe at jane@example.com or 555-123-4567."
	entities := []document.Entity{
		{Text: "Jane Doe", Type: "Person", StartChar: 8, EndChar: 16, Strategy: document.StrategyRedact},
		{Text: "jane@example.com", Type: "Email Address", StartChar: 20, EndChar: 36, Strategy: document.StrategyTokenize},
		{Text: "555-123-4567", Type: "Phone Number", StartChar: 40, EndChar: 52, Strategy: document.StrategyTokenize},
	}

	reg := NewTokenRegistry()
	result := Apply(fullText, entities, reg, nil, nil)

	assert.NotContains(t, result.Text, "Jane Doe")
	assert.NotContains(t, result.Text, "jane@example.com")
	assert.NotContains(t, result.Text, "555-123-4567")
	assert.Contains(t, result.Text, RedactedSentinel)

	emailToken := reg.Token("jane@example.com", "Email Address")
	phoneToken := reg.Token("555-123-4567", "Phone Number")
	assert.NotEqual(t, emailToken, phoneToken, "distinct values get distinct tokens")
	assert.Contains(t, result.Text, emailToken)
	assert.Contains(t, result.Text, phoneToken)
	assert.Equal(t, "Contact "+RedactedSentinel+" at "+emailToken+" or "+phoneToken+".", result.Text)

	assert.Equal(t, document.AnonymizationSummary{
		Redacted: 1, Tokenized: 2, Preserved: 0, Total: 3,
	}, result.Summary)

	require.Len(t, result.Entities, 3)
	assert.Equal(t, RedactedSentinel, result.Entities[0].AnonymizedText)
	assert.Equal(t, emailToken, result.Entities[1].AnonymizedText)
	assert.Equal(t, phoneToken, result.Entities[2].AnonymizedText)
}

func TestApplyIdempotentTokens(t *testing.T) {
	reg := NewTokenRegistry()
	first := reg.Token("jane@example.com", "email")
	second := reg.Token("jane@example.com", "email")
	assert.Equal(t, first, second)
}

func TestApplyReplacesAllOccurrences(t *testing.T) {
	fullText := "Server acme-01 talks to acme-01 nightly. Root cause: acme-01."
	entities := []document.Entity{
		{Text: "acme-01", Type: "Hostname", StartChar: 7, EndChar: 14, Strategy: document.StrategyTokenize},
	}

	result := Apply(fullText, entities, NewTokenRegistry(), nil, nil)
	assert.NotContains(t, result.Text, "acme-01")
	token := result.Entities[0].AnonymizedText
	assert.Equal(t, 3, strings.Count(result.Text, token))
}

func TestApplyLongestFirstOrdering(t *testing.T) {
	// "Doe" is a substring of "Jane Doe": the longer literal must be
	// replaced first or its text would be corrupted.
	fullText := "Jane Doe and Doe Industries"
	entities := []document.Entity{
		{Text: "Doe Industries", Type: "Organization", StartChar: 13, EndChar: 27, Strategy: document.StrategyTokenize},
		{Text: "Jane Doe", Type: "Person", StartChar: 0, EndChar: 8, Strategy: document.StrategyRedact},
	}

	result := Apply(fullText, entities, NewTokenRegistry(), nil, nil)
	assert.NotContains(t, result.Text, "Jane Doe")
	assert.NotContains(t, result.Text, "Doe Industries")
	assert.True(t, strings.HasPrefix(result.Text, RedactedSentinel))
}

func TestApplyDoesNotRewriteInsertedTokens(t *testing.T) {
	// "RED" appears inside the sentinel "[REDACTED]" once Jane Doe is
	// redacted; the inserted sentinel must stay intact.
	fullText := "Jane Doe triggered alarm RED"
	entities := []document.Entity{
		{Text: "Jane Doe", Type: "Person", StartChar: 0, EndChar: 8, Strategy: document.StrategyRedact},
		{Text: "RED", Type: "System Name", StartChar: 25, EndChar: 28, Strategy: document.StrategyTokenize},
	}

	result := Apply(fullText, entities, NewTokenRegistry(), nil, nil)
	assert.Contains(t, result.Text, RedactedSentinel, "sentinel must not be rewritten")
	assert.NotContains(t, result.Text, "alarm RED")
}

func TestApplyStrategyFallback(t *testing.T) {
	fullText := "Reach ops@example.com during business hours."
	entities := []document.Entity{
		// Empty strategy from upstream: defaults to Preserve, then the
		// suggestion upgrades it to Tokenize.
		{Text: "ops@example.com", Type: "Email Address", StartChar: 6, EndChar: 21},
		// Suggestions never upgrade to Redact.
		{Text: "business hours", Type: "Schedule", StartChar: 29, EndChar: 43},
	}
	suggested := map[string]document.Strategy{
		"Email Address": document.StrategyTokenize,
		"Schedule":      document.StrategyRedact,
	}

	result := Apply(fullText, entities, NewTokenRegistry(), suggested, nil)
	assert.NotContains(t, result.Text, "ops@example.com")
	assert.Contains(t, result.Text, "business hours", "Redact suggestion must not override Preserve")
	assert.Equal(t, 1, result.Summary.Tokenized)
	assert.Equal(t, 1, result.Summary.Preserved)
}

func TestApplyEmptyEntitySet(t *testing.T) {
	result := Apply("nothing sensitive here", nil, NewTokenRegistry(), nil, nil)
	assert.Equal(t, "nothing sensitive here", result.Text)
	assert.Equal(t, document.AnonymizationSummary{}, result.Summary)
	assert.Empty(t, result.Entities)
}
