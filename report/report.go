// Package report renders the markdown security report from assessment
// findings. Output never contains entity text, only entity types; the
// assessment stage already enforces that in its findings.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/obscura-io/obscura/document"
)

// riskImpact maps the 1..5 risk level to its impact word.
var riskImpact = map[int]string{
	5: "Critical",
	4: "High",
	3: "Medium",
	2: "Low",
	1: "Info",
}

// Impact returns the impact word for a risk level, "N/A" for out-of-range.
func Impact(level int) string {
	if w, ok := riskImpact[level]; ok {
		return w
	}
	return "N/A"
}

// Context carries everything the report needs from the pipeline state.
type Context struct {
	FileName     string
	DocumentType string
	Findings     []document.Finding
	Summary      *document.AnonymizationSummary
	GeneratedAt  time.Time
}

// NewContext builds a report context from the run state.
func NewContext(state *document.State) Context {
	fileName := state.FileName
	if fileName == "" {
		fileName = "N/A"
	}
	docType := state.DocumentType
	if docType == "" {
		docType = "Unknown"
	}
	return Context{
		FileName:     fileName,
		DocumentType: docType,
		Findings:     state.Findings,
		Summary:      state.AnonymizationSummary,
		GeneratedAt:  time.Now().UTC(),
	}
}

// Generate renders the four report sections: executive summary, technical
// details, remediation and compliance. Findings get stable FND-n identifiers
// in input order.
func Generate(ctx Context) string {
	sections := []string{
		executiveSummary(ctx),
		technicalDetails(ctx),
		remediation(ctx),
		compliance(ctx),
	}
	return strings.Join(sections, "\n\n")
}

func executiveSummary(ctx Context) string {
	var b strings.Builder
	b.WriteString("# Security Analysis Report\n\n")
	fmt.Fprintf(&b, "**Document:** %s\n", ctx.FileName)
	fmt.Fprintf(&b, "**Document Type:** %s\n", ctx.DocumentType)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", ctx.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Executive Summary\n\n")
	if len(ctx.Findings) == 0 {
		b.WriteString("No security risks were identified in this document.\n")
	} else {
		fmt.Fprintf(&b, "%d security risk(s) were identified:\n\n", len(ctx.Findings))
		b.WriteString("| Risk | Impact |\n|---|---|\n")
		for _, f := range ctx.Findings {
			fmt.Fprintf(&b, "| %s | %s |\n", f.Summary, Impact(f.RiskLevel))
		}
	}

	if ctx.Summary != nil {
		fmt.Fprintf(&b, "\nAnonymization treated %d entities: %d redacted, %d tokenized, %d preserved.\n",
			ctx.Summary.Total, ctx.Summary.Redacted, ctx.Summary.Tokenized, ctx.Summary.Preserved)
	}
	return strings.TrimRight(b.String(), "\n")
}

func technicalDetails(ctx Context) string {
	var b strings.Builder
	b.WriteString("## Technical Details\n")
	if len(ctx.Findings) == 0 {
		b.WriteString("\nNo findings to detail.")
		return b.String()
	}
	for i, f := range ctx.Findings {
		fmt.Fprintf(&b, "\n### %s (%s)\n\n", findingID(i), Impact(f.RiskLevel))
		fmt.Fprintf(&b, "%s\n\n", f.Summary)
		fmt.Fprintf(&b, "**Evidence:** %s\n", f.Explanation)
		if len(f.ComplianceMappings) > 0 {
			fmt.Fprintf(&b, "**Mapped Compliance:** %s\n", strings.Join(f.ComplianceMappings, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func remediation(ctx Context) string {
	var b strings.Builder
	b.WriteString("## Remediation\n")
	if len(ctx.Findings) == 0 {
		b.WriteString("\nNo remediation actions required.")
		return b.String()
	}
	b.WriteString("\nActions in priority order:\n")
	for i, f := range ctx.Findings {
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, f.Recommendation, findingID(i))
		if f.Guidance != "" {
			fmt.Fprintf(&b, "\n   Guidance: %s", f.Guidance)
		}
	}
	return b.String()
}

func compliance(ctx Context) string {
	var b strings.Builder
	b.WriteString("## Compliance\n")

	type mapping struct{ standard, detail string }
	var mappings []mapping
	for _, f := range ctx.Findings {
		for _, m := range f.ComplianceMappings {
			// "GDPR: Art. 32" style entries carry the mapping detail.
			if name, detail, ok := strings.Cut(m, ":"); ok {
				mappings = append(mappings, mapping{strings.TrimSpace(name), strings.TrimSpace(detail)})
			}
		}
	}
	if len(mappings) == 0 {
		b.WriteString("\nNo compliance mappings were reported.")
		return b.String()
	}
	b.WriteString("\n| Standard | Mapping |\n|---|---|\n")
	for _, m := range mappings {
		fmt.Fprintf(&b, "| %s | %s |\n", m.standard, m.detail)
	}
	return strings.TrimRight(b.String(), "\n")
}

func findingID(index int) string {
	return fmt.Sprintf("FND-%d", index+1)
}
