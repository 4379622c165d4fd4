package services

import (
	"fmt"
	"strings"

	"vardhanvasista/fresalyzer/internal/models"
)

// Labels the response parser looks for. Changing them breaks parsing of
// every prompt built here.
const (
	LabelMatchPercentage     = "**Match Percentage**"
	LabelMissingSkills       = "**Missing Skills**"
	LabelSuggestedTemplate   = "**Suggested Resume Template**"
	LabelGeneratedResumeCode = "**Generated Resume Code**"
	LabelCandidateName       = "**Candidate Name**"
)

// ExperienceGateReply is the start of the reply the full prompt requests for
// jobs that need prior experience. It carries no percentage.
const ExperienceGateReply = "is not suitable for you as it requires an experience of"

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildFullPrompt asks for the complete analysis of a resume against one job
// description, including a regenerated resume in the requested format. Jobs
// asking for prior experience are answered with ExperienceGateReply instead.
func (pb *PromptBuilder) BuildFullPrompt(resumeText, jobDescriptionText, format, length, jobName string) string {
	if format == "" {
		format = models.FormatLaTeX
	}
	pages := "1"
	if length == models.LengthMulti {
		pages = "2"
	}

	target := "the job description"
	if strings.TrimSpace(jobName) != "" {
		target = fmt.Sprintf("the job description (%s)", jobName)
	}

	return fmt.Sprintf(`Analyze the provided resume and %s thoroughly. Perform the following tasks:

MATCH ANALYSIS:
- Calculate the match percentage between the resume and the job description. If you arrive at a range, report the average as a single number.
- List in detail the missing skills, technologies and experience that are relevant to the job but not present in the resume.
- If the job description requires more than 0 years of experience, reply only with "This (Job Title) Job from (Company Name) is not suitable for you as it requires an experience of (years) years" and stop. Give no other output.

RESUME IMPROVEMENT SUGGESTIONS:
- Suggest in detail how the resume can be improved to align better with the job description.
- Recommend a modern, industry-standard resume template that is trending in the tech industry. Give only its name and the website it can be found on. Do not give a direct link.

GENERATE AN OPTIMIZED RESUME IN %s:
- Create a %s-page A4-sized resume in %s that achieves the highest possible match percentage with the job description.
- Use a clean, ATS-friendly and professional layout based on the template you recommended.
- Include a header with name and contact details, an education section, a skills section with the most relevant skills, and a projects section that best matches the role.
- The %s code must be fully formatted and ready to compile or render.

RESUME:
%s

JOB DESCRIPTION:
%s

Provide the results in exactly the following format, each label starting its own line:
%s: <number>%%
%s: <list>
%s: <template name and website>
%s:
<the complete resume source code and nothing after it>`,
		target,
		format,
		pages, format,
		format,
		resumeText,
		jobDescriptionText,
		LabelMatchPercentage,
		LabelMissingSkills,
		LabelSuggestedTemplate,
		LabelGeneratedResumeCode,
	)
}

// BuildScoreOnlyPrompt asks for nothing but the match percentage.
func (pb *PromptBuilder) BuildScoreOnlyPrompt(resumeText, jobDescriptionText string) string {
	return fmt.Sprintf(`Compare the following resume with the job description and calculate the match percentage between them.

Respond with exactly one line in this format and nothing else:
Match Percentage: 85%%

RESUME:
%s

JOB DESCRIPTION:
%s`, resumeText, jobDescriptionText)
}

// BuildRecruiterPrompt asks for the candidate's name and the match percentage.
func (pb *PromptBuilder) BuildRecruiterPrompt(resumeText, jobDescriptionText string) string {
	return fmt.Sprintf(`Compare the following resume with the given job description and:
- Calculate the match percentage between the resume and the job description.
- Extract the candidate's full name from the resume.

Respond in exactly this format and give no other details:
%s: John Doe
%s: 85%%

RESUME:
%s

JOB DESCRIPTION:
%s`, LabelCandidateName, LabelMatchPercentage, resumeText, jobDescriptionText)
}

// PromptFor picks the prompt used for one pair in a batch of the given mode.
func (pb *PromptBuilder) PromptFor(mode models.Mode, resume, jobDescription models.Document, opts models.AnalysisOptions) string {
	switch mode {
	case models.ModeManyVsSingle:
		return pb.BuildRecruiterPrompt(resume.Text, jobDescription.Text)
	case models.ModeManyModelsVsOne:
		return pb.BuildScoreOnlyPrompt(resume.Text, jobDescription.Text)
	case models.ModeSingleVsMany:
		if !opts.FullAnalysis {
			return pb.BuildScoreOnlyPrompt(resume.Text, jobDescription.Text)
		}
	}
	return pb.BuildFullPrompt(resume.Text, jobDescription.Text, opts.Format, opts.Length, jobDescription.Name)
}
