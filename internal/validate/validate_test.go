// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/assistant-core/pkg/types"
)

func testValidator() *Validator {
	return New(types.ValidationConfig{MaxContentLength: 8000}, zerolog.Nop())
}

// wellFormed is research-style content that passes every check.
const wellFormed = "A randomized trial (2021) published in a peer-reviewed journal found " +
	"that the intervention reduces symptom duration (doi:10.1000/example1). A second " +
	"systematic review (2022) reported consistent results (doi:10.1000/example2). " +
	"Readers should consult a healthcare professional before acting on clinical research."

func TestWellFormedContentIsValid(t *testing.T) {
	result := testValidator().Validate(wellFormed)

	assert.True(t, result.IsValid)
	assert.Greater(t, result.QualityScore, 0.5)
	assert.Empty(t, result.Issues)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9, "no reporting check defaults confidence to 0.8")
}

func TestDirectAdviceIsCritical(t *testing.T) {
	result := testValidator().Validate("You should take 500mg aspirin daily")

	assert.False(t, result.IsValid)

	var critical []types.ValidationIssue
	for _, iss := range result.Issues {
		if iss.Severity == types.SeverityCritical {
			critical = append(critical, iss)
		}
	}
	require.Len(t, critical, 1)
	assert.Equal(t, "safety", critical[0].Type)
}

func TestCriticalForcesInvalidRegardlessOfScore(t *testing.T) {
	// Well-cited and disclaimed, but with direct advice buried inside.
	content := wellFormed + " Given this evidence, you should take the medication."
	result := testValidator().Validate(content)

	assert.False(t, result.IsValid, "a critical issue must force invalidity even with a high score")
	assert.True(t, result.HasCritical())
}

func TestDiagnosticPhrasingIsCritical(t *testing.T) {
	result := testValidator().Validate("Based on these symptoms, you have hypertension.")
	assert.False(t, result.IsValid)
	assert.True(t, result.HasCritical())
}

func TestDosageWithoutResearchContext(t *testing.T) {
	result := testValidator().Validate("The usual amount is 200mg twice a day for adults.")

	found := false
	for _, iss := range result.Issues {
		if iss.Type == "dosage" && iss.Severity == types.SeverityHigh {
			found = true
		}
	}
	assert.True(t, found, "dosage without research wording should flag high")
}

func TestDosageWithResearchContextPasses(t *testing.T) {
	result := testValidator().Validate("Participants in the trial received 200mg per protocol.")
	for _, iss := range result.Issues {
		assert.NotEqual(t, "dosage", iss.Type)
	}
}

func TestUncitedSubstantialContent(t *testing.T) {
	content := strings.Repeat("This prose asserts things about the world without a single reference. ", 5)
	result := testValidator().Validate(content)

	found := false
	for _, iss := range result.Issues {
		if iss.Type == "citation" && iss.Severity == types.SeverityMedium {
			found = true
		}
	}
	assert.True(t, found)
}

func TestContradictionDetection(t *testing.T) {
	content := "The compound aspirin proved effective in reducing inflammation markers. " +
		"The compound aspirin proved harmful in reducing inflammation markers."
	result := testValidator().Validate(content)

	found := false
	for _, iss := range result.Issues {
		if iss.Type == "consistency" && iss.Severity == types.SeverityHigh {
			found = true
		}
	}
	assert.True(t, found, "opposite-polarity sentences sharing vocabulary should flag")
}

func TestStaleReferenceFlagged(t *testing.T) {
	result := testValidator().Validate("A foundational study (1998) established the baseline.")

	found := false
	for _, iss := range result.Issues {
		if iss.Type == "staleness" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestOverclaimingSuperlatives(t *testing.T) {
	result := testValidator().Validate("This is always the best option and never fails in all cases.")

	found := false
	for _, iss := range result.Issues {
		if iss.Type == "overclaiming" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLowQualitySourceMarkers(t *testing.T) {
	result := testValidator().Validate("According to a blog and anecdotal reports, the remedy works.")

	found := false
	for _, iss := range result.Issues {
		if iss.Type == "source-quality" && iss.Severity == types.SeverityHigh {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLengthBound(t *testing.T) {
	v := New(types.ValidationConfig{MaxContentLength: 100}, zerolog.Nop())
	result := v.Validate(strings.Repeat("x", 150))

	found := false
	for _, iss := range result.Issues {
		if iss.Type == "structure" && strings.Contains(iss.Message, "character limit") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMissingDisclaimerOnMedicalContent(t *testing.T) {
	result := testValidator().Validate("Clinical data on the medication is summarized here (2023).")

	found := false
	for _, iss := range result.Issues {
		if iss.Type == "structure" && strings.Contains(iss.Message, "disclaimer") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMultiSourceCheck(t *testing.T) {
	long := strings.Repeat("A long single-threaded narrative citing one work (2020). ", 10)
	result := testValidator().Validate(long)

	found := false
	for _, iss := range result.Issues {
		if iss.Type == "multi-source" {
			found = true
		}
	}
	assert.True(t, found, "long content with one source should flag")
}

// TestQualityScoreMonotonic checks the core property: adding issues never
// raises the score.
func TestQualityScoreMonotonic(t *testing.T) {
	v := testValidator()

	clean := v.Validate(wellFormed)
	oneIssue := v.Validate(wellFormed + " According to a blog, it also works for everything.")
	twoIssues := v.Validate(wellFormed + " According to a blog, it always works, never fails, and is best in all cases.")

	assert.GreaterOrEqual(t, clean.QualityScore, oneIssue.QualityScore)
	assert.GreaterOrEqual(t, oneIssue.QualityScore, twoIssues.QualityScore)
}

func TestQualityScoreClampedLow(t *testing.T) {
	bad := "You should take 900mg daily. You have a deficiency. According to a blog it always " +
		"works, never fails, is best in all cases, and all patients improve."
	result := testValidator().Validate(bad)

	assert.InDelta(t, 0.1, result.QualityScore, 1e-9, "score is clamped at 0.1")
	assert.False(t, result.IsValid)
}

func TestRecommendationsDedupedAndCapped(t *testing.T) {
	bad := "You should take 900mg daily. You have a deficiency. According to a blog it always " +
		"works, never fails, is best in all cases, and all patients improve."
	result := testValidator().Validate(bad)

	require.NotEmpty(t, result.Recommendations)
	assert.LessOrEqual(t, len(result.Recommendations), 5)
	seen := make(map[string]bool)
	for _, rec := range result.Recommendations {
		assert.False(t, seen[rec], "recommendations must be deduplicated")
		seen[rec] = true
	}
}

func TestConfidenceIsMinimumOfReportingChecks(t *testing.T) {
	// Safety critical reports a very low confidence; the overall confidence
	// must not exceed it.
	result := testValidator().Validate("You should take 500mg aspirin daily")
	assert.LessOrEqual(t, result.Confidence, 0.3+1e-9)
	assert.GreaterOrEqual(t, result.Confidence, 0.1)
}

// --- provider adapter ---

func TestProviderValidatesPreviousResult(t *testing.T) {
	p := NewProvider(testValidator())
	rc := &types.RequestContext{
		Message:  "aspirin",
		Metadata: map[string]any{types.MetaPreviousResult: &types.RetrievalResult{Content: wellFormed}},
	}

	resp := p.Process(context.Background(), rc)
	require.True(t, resp.Success)
	result, ok := resp.Data.(types.ValidationResult)
	require.True(t, ok)
	assert.True(t, result.IsValid)
}

func TestProviderFailsWithoutContent(t *testing.T) {
	p := NewProvider(testValidator())
	rc := &types.RequestContext{Message: "aspirin", Metadata: map[string]any{}}

	resp := p.Process(context.Background(), rc)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.False(t, p.CanHandle(rc))
}
