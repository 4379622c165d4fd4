package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vardhanvasista/fresalyzer/internal/models"
)

func TestParsePercentage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   float64
		status models.ParseStatus
	}{
		{"labeled field", "**Match Percentage**: 85%", 85, models.ParseFound},
		{"short form", "Match: 7%", 7, models.ParseFound},
		{"no percent sign", "The resume matches well overall.", 0, models.ParseNotFound},
		{"empty", "", 0, models.ParseNotFound},
		{"fractional", "match percentage: 72.5 %", 72.5, models.ParseFound},
		{"case insensitive", "MATCH PERCENTAGE: 64%", 64, models.ParseFound},
		{
			"first matching line wins",
			"Intro line with 99% confidence\n**Match Percentage**: 40%\nMatch elsewhere: 90%",
			40, models.ParseFound,
		},
		{
			"skips match lines without a percentage",
			"Match analysis below\n**Match Percentage**: 55%",
			55, models.ParseFound,
		},
		{"out of range", "Match Percentage: 150%", 0, models.ParseOutOfRange},
		{"range reports first number", "Match Percentage: 70% - 80%", 70, models.ParseFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePercentage(tt.text)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestParsePercentage_Idempotent(t *testing.T) {
	text := "**Candidate Name**: Ada\n**Match Percentage**: 81%\n"

	first := ParsePercentage(text)
	second := ParsePercentage(text)
	assert.Equal(t, first, second)
	assert.True(t, first.Found())
}

func TestParsePercentage_ZeroIsAmbiguousOnlyWhenUnparsed(t *testing.T) {
	genuine := ParsePercentage("Match Percentage: 0%")
	assert.Equal(t, 0.0, genuine.Value)
	assert.True(t, genuine.Found())

	missing := ParsePercentage("I cannot evaluate this resume.")
	assert.Equal(t, 0.0, missing.Value)
	assert.False(t, missing.Found())
}

func TestExtractCandidateName(t *testing.T) {
	assert.Equal(t, "John Doe", ExtractCandidateName("**Candidate Name**: John Doe\n**Match Percentage**: 85%"))
	assert.Equal(t, "Priya Sharma", ExtractCandidateName("candidate name: **Priya Sharma**"))
	assert.Equal(t, UnknownCandidate, ExtractCandidateName("**Match Percentage**: 85%"))
	assert.Equal(t, UnknownCandidate, ExtractCandidateName("**Candidate Name**:\n**Match Percentage**: 85%"))
	assert.Equal(t, "Ana Lima", ExtractCandidateName("**Candidate Name:** Ana Lima"))

	for _, text := range []string{
		"**Candidate Name** - Jane Roe",
		"**Candidate Name** \u2013 Jane Roe",
		"**Candidate Name** Jane Roe",
	} {
		assert.Equal(t, "Jane Roe", ExtractCandidateName(text), text)
	}
}

func TestParsePercentage_ExperienceGateReplyIsAmbiguousZero(t *testing.T) {
	reply := "This Backend Engineer Job from Acme " + ExperienceGateReply + " 3 years"

	got := ParsePercentage(reply)
	assert.Equal(t, float64(0), got.Value)
	assert.Equal(t, models.ParseNotFound, got.Status)
	assert.False(t, got.Found())

	result := models.AnalysisResult{Percentage: got.Value, Parse: got.Status}
	assert.True(t, result.Ambiguous())
}

func TestExtractResumeCode(t *testing.T) {
	t.Run("fenced block", func(t *testing.T) {
		text := "**Match Percentage**: 70%\n**Generated Resume Code**:\n```latex\n\\documentclass{article}\n\\begin{document}Hi\\end{document}\n```\nGood luck!"
		assert.Equal(t, "\\documentclass{article}\n\\begin{document}Hi\\end{document}", ExtractResumeCode(text))
	})

	t.Run("plain text after label", func(t *testing.T) {
		text := "Generated resume code:\n<html><body>CV</body></html>\n"
		assert.Equal(t, "<html><body>CV</body></html>", ExtractResumeCode(text))
	})

	t.Run("unterminated fence", func(t *testing.T) {
		text := "**Generated Resume Code**:\n```html\n<p>cut off"
		assert.Equal(t, "<p>cut off", ExtractResumeCode(text))
	})

	t.Run("missing label", func(t *testing.T) {
		assert.Empty(t, ExtractResumeCode("**Match Percentage**: 70%"))
	})
}
