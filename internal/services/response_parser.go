package services

import (
	"regexp"
	"strconv"
	"strings"

	"vardhanvasista/fresalyzer/internal/models"
)

const UnknownCandidate = "Unknown"

var (
	percentPattern       = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	candidateNamePattern = regexp.MustCompile(`(?i)candidate\s+name[*_]*[ \t]*[:\-\x{2013}]?[ \t]*(.*)`)
	resumeCodePattern    = regexp.MustCompile(`(?i)generated\s+resume\s+code`)
	codeFencePattern     = regexp.MustCompile("(?s)```[A-Za-z0-9+-]*[ \t]*\r?\n(.*?)```")
)

// PercentageResult is the outcome of scraping a match percentage out of a
// free-text reply. Value is 0 unless Status is ParseFound.
type PercentageResult struct {
	Value  float64
	Status models.ParseStatus
}

func (p PercentageResult) Found() bool {
	return p.Status == models.ParseFound
}

// ParsePercentage returns the number before the first "%" on the first line
// that mentions "match" and carries a percentage.
func ParsePercentage(text string) PercentageResult {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(strings.ToLower(line), "match") {
			continue
		}

		m := percentPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if value < 0 || value > 100 {
			return PercentageResult{Value: 0, Status: models.ParseOutOfRange}
		}
		return PercentageResult{Value: value, Status: models.ParseFound}
	}

	return PercentageResult{Value: 0, Status: models.ParseNotFound}
}

// ExtractCandidateName reads the value of the "Candidate Name" field, or
// returns UnknownCandidate.
func ExtractCandidateName(text string) string {
	m := candidateNamePattern.FindStringSubmatch(text)
	if m == nil {
		return UnknownCandidate
	}

	name := strings.Trim(strings.TrimSpace(m[1]), "*_` \t\r")
	if name == "" {
		return UnknownCandidate
	}
	return name
}

// ExtractResumeCode returns the resume source that follows the "Generated
// Resume Code" label. When the source is fenced, only the first fenced block
// is returned.
func ExtractResumeCode(text string) string {
	loc := resumeCodePattern.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	rest := strings.TrimLeft(text[loc[1]:], "*: \t")
	if m := codeFencePattern.FindStringSubmatch(rest); m != nil {
		return strings.TrimSpace(m[1])
	}

	// Unterminated fence: drop the opening line.
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "```") {
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		} else {
			rest = ""
		}
	}
	return strings.TrimSpace(rest)
}
