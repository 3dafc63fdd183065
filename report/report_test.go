package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-io/obscura/document"
)

func TestImpact(t *testing.T) {
	assert.Equal(t, "Critical", Impact(5))
	assert.Equal(t, "High", Impact(4))
	assert.Equal(t, "Medium", Impact(3))
	assert.Equal(t, "Low", Impact(2))
	assert.Equal(t, "Info", Impact(1))
	assert.Equal(t, "N/A", Impact(0))
	assert.Equal(t, "N/A", Impact(9))
}

func TestNewContextDefaults(t *testing.T) {
	ctx := NewContext(&document.State{})
	assert.Equal(t, "N/A", ctx.FileName)
	assert.Equal(t, "Unknown", ctx.DocumentType)
	assert.False(t, ctx.GeneratedAt.IsZero())
}

func TestGenerateWithFindings(t *testing.T) {
	state := &document.State{
		FileName:     "network_audit.pdf",
		DocumentType: "Network Security Document",
		Findings: []document.Finding{
			{
				Summary:            "An IP Address is exposed alongside a Hostname.",
				RiskLevel:          4,
				Explanation:        "Pairing an IP Address with a Hostname aids lateral movement.",
				Recommendation:     "Separate the IP Address inventory from the Hostname list.",
				ComplianceMappings: []string{"GDPR: Art. 32", "ISO 27001: A.8.2"},
				Guidance:           "Store network inventories in the asset management system.",
			},
			{
				Summary:        "A Person's name appears next to access credentials.",
				RiskLevel:      5,
				Explanation:    "A Person linked to credentials enables targeted phishing.",
				Recommendation: "Remove the Person reference from credential records.",
			},
		},
		AnonymizationSummary: &document.AnonymizationSummary{Redacted: 1, Tokenized: 2, Total: 3},
	}

	out := Generate(NewContext(state))

	assert.Contains(t, out, "# Security Analysis Report")
	assert.Contains(t, out, "**Document:** network_audit.pdf")
	assert.Contains(t, out, "**Document Type:** Network Security Document")
	assert.Contains(t, out, "2 security risk(s) were identified")

	// Stable finding ids in input order, with impact words.
	assert.Contains(t, out, "### FND-1 (High)")
	assert.Contains(t, out, "### FND-2 (Critical)")
	assert.Less(t, strings.Index(out, "FND-1"), strings.Index(out, "FND-2"))

	assert.Contains(t, out, "1. Separate the IP Address inventory from the Hostname list. (FND-1)")
	assert.Contains(t, out, "Guidance: Store network inventories in the asset management system.")

	assert.Contains(t, out, "| GDPR | Art. 32 |")
	assert.Contains(t, out, "| ISO 27001 | A.8.2 |")

	assert.Contains(t, out, "Anonymization treated 3 entities: 1 redacted, 2 tokenized, 0 preserved.")

	// All four sections render.
	for _, heading := range []string{"## Executive Summary", "## Technical Details", "## Remediation", "## Compliance"} {
		assert.Contains(t, out, heading)
	}
}

func TestGenerateNoFindings(t *testing.T) {
	out := Generate(NewContext(&document.State{FileName: "empty.docx", DocumentType: "contract"}))

	assert.Contains(t, out, "No security risks were identified")
	assert.Contains(t, out, "No findings to detail.")
	assert.Contains(t, out, "No remediation actions required.")
	assert.Contains(t, out, "No compliance mappings were reported.")
	assert.NotContains(t, out, "FND-")
}

func TestGenerateMappingsWithoutColonSkipped(t *testing.T) {
	state := &document.State{
		Findings: []document.Finding{
			{Summary: "s", RiskLevel: 2, ComplianceMappings: []string{"N/A"}},
		},
	}
	out := Generate(NewContext(state))
	require.Contains(t, out, "No compliance mappings were reported.")
}
