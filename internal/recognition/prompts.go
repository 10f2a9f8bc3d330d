package recognition

import _ "embed"

//go:embed prompts/enrollment.txt
var enrollmentPrompt string

//go:embed prompts/comparison.txt
var comparisonPrompt string
