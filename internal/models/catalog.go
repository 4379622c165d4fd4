package models

// KnownModels lists the Gemini model identifiers offered to users, in display order.
var KnownModels = []string{
	"gemini-1.5-pro-latest",
	"gemini-1.5-flash-latest",
	"gemini-1.5-pro-002",
	"gemini-1.5-pro-001",
	"gemini-1.5-pro",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-2.5-flash-preview-04-17",
	"gemini-2.0-flash-thinking-exp-01-21",
	"gemini-2.5-pro-exp-03-25",
	"gemini-2.0-flash-lite-preview-02-05",
	"gemini-1.5-flash-8b",
	"gemini-1.5-flash-002",
	"gemini-2.0-pro-exp",
}

// ReferenceAccuracy is the measured accuracy (percent) of each known model on
// the project's evaluation set. It is static reference data, not computed here.
var ReferenceAccuracy = map[string]int{
	"gemini-1.5-pro-latest":               92,
	"gemini-1.5-flash-latest":             89,
	"gemini-1.5-pro-002":                  88,
	"gemini-1.5-pro-001":                  86,
	"gemini-1.5-pro":                      85,
	"gemini-2.0-flash":                    83,
	"gemini-2.0-flash-lite":               81,
	"gemini-2.5-flash-preview-04-17":      87,
	"gemini-2.0-flash-thinking-exp-01-21": 84,
	"gemini-2.5-pro-exp-03-25":            94,
	"gemini-2.0-flash-lite-preview-02-05": 80,
	"gemini-1.5-flash-8b":                 82,
	"gemini-1.5-flash-002":                88,
	"gemini-2.0-pro-exp":                  90,
}

func IsKnownModel(id string) bool {
	for _, m := range KnownModels {
		if m == id {
			return true
		}
	}
	return false
}
