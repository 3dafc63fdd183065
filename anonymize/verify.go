package anonymize

import (
	"regexp"
	"strings"
)

var (
	emailRE = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRE = regexp.MustCompile(`\+?\d[\d\s\-]{7,}\d`)
	idRE    = regexp.MustCompile(`\b[A-Z]{2}\d{6,}\b`)
)

// Leak is one residual sensitive value found in supposedly cleansed text.
type Leak struct {
	Type  string `json:"type"` // "direct_match", "email_pattern", "phone_pattern", "id_pattern"
	Value string `json:"value"`
}

// VerificationReport summarizes a post-anonymization sweep.
type VerificationReport struct {
	OK    bool   `json:"ok"`
	Leaks []Leak `json:"findings"`
}

// Verify sweeps cleansed text for residual PII: direct case-insensitive
// matches of known sensitive values, plus regex patterns for emails, phone
// numbers and structured identifiers. Used by the audit trail to flag
// incomplete anonymization; it never mutates the text.
func Verify(cleansed string, knownPII []string) VerificationReport {
	var report VerificationReport
	lower := strings.ToLower(cleansed)

	for _, value := range knownPII {
		if value == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(value)) {
			report.Leaks = append(report.Leaks, Leak{Type: "direct_match", Value: value})
		}
	}
	for _, m := range emailRE.FindAllString(cleansed, -1) {
		report.Leaks = append(report.Leaks, Leak{Type: "email_pattern", Value: m})
	}
	for _, m := range phoneRE.FindAllString(cleansed, -1) {
		report.Leaks = append(report.Leaks, Leak{Type: "phone_pattern", Value: m})
	}
	for _, m := range idRE.FindAllString(cleansed, -1) {
		report.Leaks = append(report.Leaks, Leak{Type: "id_pattern", Value: m})
	}

	report.OK = len(report.Leaks) == 0
	return report
}
