// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/assistant-core/pkg/types"
)

// substantialLen is the length past which content is expected to cite
// something.
const substantialLen = 200

// multiSourceLen is the length past which content should cite at least two
// distinct sources.
const multiSourceLen = 400

// claimWindow is how far (in bytes) from a medical claim a citation may sit
// and still count as supporting it.
const claimWindow = 150

// checkResult is one check's contribution: a multiplicative quality factor
// in (0, 1], the issues found, and an optional confidence (0 = not
// reported).
type checkResult struct {
	factor     float64
	issues     []types.ValidationIssue
	confidence float64
}

type checkFunc func(content string, cfg types.ValidationConfig) checkResult

// severityFactor maps an issue's severity to its quality multiplier.
func severityFactor(s types.Severity) float64 {
	switch s {
	case types.SeverityCritical:
		return 0.3
	case types.SeverityHigh:
		return 0.6
	case types.SeverityMedium:
		return 0.8
	default:
		return 0.95
	}
}

// resultFromIssues folds issues into a checkResult: the factor is the
// product of the per-issue multipliers, and the factor doubles as the
// check's reported confidence when anything was found.
func resultFromIssues(issues []types.ValidationIssue) checkResult {
	r := checkResult{factor: 1.0, issues: issues}
	for _, iss := range issues {
		r.factor *= severityFactor(iss.Severity)
	}
	if len(issues) > 0 {
		r.confidence = r.factor
	}
	return r
}

var (
	parentheticalYearRe = regexp.MustCompile(`\((19|20)\d{2}\)`)
	bracketRefRe        = regexp.MustCompile(`\[\d+\]`)
	doiRe               = regexp.MustCompile(`(?i)(doi:|10\.\d{4,}/)`)
	pmidRe              = regexp.MustCompile(`(?i)PMID:?\s*\d+`)
	urlRe               = regexp.MustCompile(`https?://\S+`)
	studiesShowRe       = regexp.MustCompile(`(?i)(studies show|research (shows|indicates|suggests)|according to (a|the) (study|trial))`)
	yearRe              = regexp.MustCompile(`(19|20)\d{2}`)
	dosageRe            = regexp.MustCompile(`(?i)\d+\s*(mg|mcg|ml|g)\b`)
	superlativeRe       = regexp.MustCompile(`(?i)\b(best|always|never|all|none|every|guaranteed)\b`)
)

var citationPatterns = []*regexp.Regexp{
	parentheticalYearRe, bracketRefRe, doiRe, pmidRe, urlRe, studiesShowRe,
}

// hasCitation reports whether s contains any citation-like pattern.
func hasCitation(s string) bool {
	for _, re := range citationPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// medicalClaimRe matches sentences asserting a medical effect.
var medicalClaimRe = regexp.MustCompile(`(?i)\b(reduces|prevents|cures|treats|improves|is effective (for|against)|lowers the risk)\b`)

var medicalTermRe = regexp.MustCompile(`(?i)\b(drug|dose|dosage|treatment|therapy|patient|clinical|disease|medication|symptom|diagnosis|aspirin|cardiovascular)\b`)

// isMedical reports whether content reads as medical subject matter.
func isMedical(content string) bool {
	return medicalTermRe.MatchString(content)
}

// checkCitations flags substantial content with no citations at all, and
// medical claims with no citation nearby.
func checkCitations(content string, _ types.ValidationConfig) checkResult {
	var issues []types.ValidationIssue

	if len(content) >= substantialLen && !hasCitation(content) {
		issues = append(issues, types.ValidationIssue{
			Type:           "citation",
			Severity:       types.SeverityMedium,
			Message:        "substantial content contains no citation-like pattern",
			Recommendation: "add references to the studies the content relies on",
		})
	}

	for _, loc := range medicalClaimRe.FindAllStringIndex(content, -1) {
		lo := loc[0] - claimWindow
		if lo < 0 {
			lo = 0
		}
		hi := loc[1] + claimWindow
		if hi > len(content) {
			hi = len(content)
		}
		if !hasCitation(content[lo:hi]) {
			issues = append(issues, types.ValidationIssue{
				Type:           "citation",
				Severity:       types.SeverityHigh,
				Message:        "medical claim has no citation within reach",
				Recommendation: "cite the study supporting this claim",
				Location:       fmt.Sprintf("offset %d", loc[0]),
			})
			break // one uncited-claim issue is enough
		}
	}

	return resultFromIssues(issues)
}

var (
	directAdviceRe = regexp.MustCompile(`(?i)\byou (should|must|need to) (take|use|stop|start)\b`)
	diagnosticRe   = regexp.MustCompile(`(?i)\byou (have|are suffering from|are diagnosed with)\b`)
	researchCtxRe  = regexp.MustCompile(`(?i)\b(study|trial|research|participants|protocol|in the literature)\b`)
)

// checkSafety screens for direct medical advice, diagnostic phrasing, and
// ungrounded dosage numbers. Advice and diagnosis are critical and force
// overall invalidity.
func checkSafety(content string, _ types.ValidationConfig) checkResult {
	var issues []types.ValidationIssue

	if directAdviceRe.MatchString(content) {
		issues = append(issues, types.ValidationIssue{
			Type:           "safety",
			Severity:       types.SeverityCritical,
			Message:        "content gives direct medical advice",
			Recommendation: "rephrase as a research finding, not a directive",
		})
	}
	if diagnosticRe.MatchString(content) {
		issues = append(issues, types.ValidationIssue{
			Type:           "safety",
			Severity:       types.SeverityCritical,
			Message:        "content uses diagnostic phrasing",
			Recommendation: "remove diagnostic statements about the reader",
		})
	}
	if dosageRe.MatchString(content) && !researchCtxRe.MatchString(content) {
		issues = append(issues, types.ValidationIssue{
			Type:           "dosage",
			Severity:       types.SeverityHigh,
			Message:        "dosage figures appear without research context",
			Recommendation: "frame dosages as reported by specific studies",
		})
	}

	return resultFromIssues(issues)
}

var (
	positivePolarity = []string{"effective", "safe", "beneficial"}
	negativePolarity = []string{"ineffective", "unsafe", "harmful", "dangerous"}
)

// checkFactConsistency looks for internal contradictions, stale references,
// and overclaiming.
func checkFactConsistency(content string, _ types.ValidationConfig) checkResult {
	var issues []types.ValidationIssue

	sentences := splitSentences(content)
	if pair := findContradiction(sentences); pair != "" {
		issues = append(issues, types.ValidationIssue{
			Type:           "consistency",
			Severity:       types.SeverityHigh,
			Message:        "sentences with shared vocabulary make opposite-polarity claims",
			Recommendation: "reconcile or qualify the contradictory statements",
			Location:       pair,
		})
	}

	staleBefore := time.Now().Year() - 10
	for _, match := range yearRe.FindAllString(content, -1) {
		var year int
		fmt.Sscanf(match, "%d", &year)
		if year > 1900 && year < staleBefore {
			issues = append(issues, types.ValidationIssue{
				Type:           "staleness",
				Severity:       types.SeverityMedium,
				Message:        fmt.Sprintf("references work from %d, more than a decade old", year),
				Recommendation: "check whether newer studies supersede this reference",
			})
			break
		}
	}

	if len(superlativeRe.FindAllString(content, -1)) > 2 {
		issues = append(issues, types.ValidationIssue{
			Type:           "overclaiming",
			Severity:       types.SeverityMedium,
			Message:        "content leans on unqualified superlatives",
			Recommendation: "qualify absolute statements with the underlying evidence",
		})
	}

	return resultFromIssues(issues)
}

// findContradiction returns a location hint when two sentences share
// vocabulary but carry opposite polarity keywords, or "" when none do.
func findContradiction(sentences []string) string {
	for i := 0; i < len(sentences); i++ {
		for j := i + 1; j < len(sentences); j++ {
			a, b := strings.ToLower(sentences[i]), strings.ToLower(sentences[j])
			if sharedVocabulary(a, b) < 2 {
				continue
			}
			if containsAny(a, positivePolarity) && containsAny(b, negativePolarity) {
				return fmt.Sprintf("sentences %d and %d", i+1, j+1)
			}
			if containsAny(a, negativePolarity) && containsAny(b, positivePolarity) {
				return fmt.Sprintf("sentences %d and %d", i+1, j+1)
			}
		}
	}
	return ""
}

// sharedVocabulary counts words of 5+ letters the two sentences have in common.
func sharedVocabulary(a, b string) int {
	seen := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		w = strings.Trim(w, ".,;:!?")
		if len(w) >= 5 {
			seen[w] = true
		}
	}
	n := 0
	counted := make(map[string]bool)
	for _, w := range strings.Fields(b) {
		w = strings.Trim(w, ".,;:!?")
		if seen[w] && !counted[w] {
			counted[w] = true
			n++
		}
	}
	return n
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func splitSentences(content string) []string {
	parts := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	peerReviewRe = regexp.MustCompile(`(?i)\b(peer.reviewed|journal|published in|meta.analysis|systematic review|doi)\b`)
	lowQualityRe = regexp.MustCompile(`(?i)\b(blog|social media|anecdotal|forum post|reddit)\b`)
)

// checkSourceQuality flags long content with no peer-review indicator and
// any mention of low-quality source markers.
func checkSourceQuality(content string, _ types.ValidationConfig) checkResult {
	var issues []types.ValidationIssue

	if len(content) >= substantialLen && !peerReviewRe.MatchString(content) && !doiRe.MatchString(content) {
		issues = append(issues, types.ValidationIssue{
			Type:           "source-quality",
			Severity:       types.SeverityMedium,
			Message:        "long content carries no peer-review indicator",
			Recommendation: "anchor the content in peer-reviewed literature",
		})
	}
	if lowQualityRe.MatchString(content) {
		issues = append(issues, types.ValidationIssue{
			Type:           "source-quality",
			Severity:       types.SeverityHigh,
			Message:        "content leans on low-quality source markers",
			Recommendation: "replace informal sources with indexed publications",
		})
	}

	return resultFromIssues(issues)
}

var disclaimerRe = regexp.MustCompile(`(?i)consult.{0,40}(professional|physician|doctor|healthcare|provider)`)

// checkStructure enforces the length bound and the medical disclaimer.
func checkStructure(content string, cfg types.ValidationConfig) checkResult {
	var issues []types.ValidationIssue

	maxLen := cfg.MaxContentLength
	if maxLen <= 0 {
		maxLen = 8000
	}
	if len(content) > maxLen {
		issues = append(issues, types.ValidationIssue{
			Type:           "structure",
			Severity:       types.SeverityMedium,
			Message:        fmt.Sprintf("content exceeds the %d character limit", maxLen),
			Recommendation: "tighten the response to its strongest evidence",
		})
	}
	if isMedical(content) && !disclaimerRe.MatchString(content) {
		issues = append(issues, types.ValidationIssue{
			Type:           "structure",
			Severity:       types.SeverityMedium,
			Message:        "medical content lacks a consult-a-professional disclaimer",
			Recommendation: "append a disclaimer directing readers to a healthcare professional",
		})
	}

	return resultFromIssues(issues)
}

// checkMultiSource flags long content that cites fewer than two distinct
// sources.
func checkMultiSource(content string, _ types.ValidationConfig) checkResult {
	var issues []types.ValidationIssue

	if len(content) > multiSourceLen && countDistinctSources(content) < 2 {
		issues = append(issues, types.ValidationIssue{
			Type:           "multi-source",
			Severity:       types.SeverityMedium,
			Message:        "long content cites fewer than two distinct sources",
			Recommendation: "corroborate the content with an independent source",
		})
	}

	return resultFromIssues(issues)
}

// countDistinctSources counts distinct citation tokens: DOIs, bracketed
// references, URLs, and parenthetical years.
func countDistinctSources(content string) int {
	seen := make(map[string]bool)
	for _, re := range []*regexp.Regexp{doiSpecificRe, bracketRefRe, urlRe, parentheticalYearRe} {
		for _, m := range re.FindAllString(content, -1) {
			seen[strings.ToLower(m)] = true
		}
	}
	return len(seen)
}

// doiSpecificRe matches a full DOI rather than the bare "doi:" marker so
// distinct DOIs count separately.
var doiSpecificRe = regexp.MustCompile(`(?i)10\.\d{4,}/\S+`)
