package models

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultScript returns the built-in candidate screening script. The company
// name is woven into the opening confirmation prompt.
func DefaultScript(companyName string) []QuestionSpec {
	return []QuestionSpec{
		{
			Key:          "confirmation",
			Prompt:       fmt.Sprintf("Hello! This is %s calling. Are you still interested in joining our team? Please answer yes or no.", companyName),
			ValidOptions: []string{"yes", "no"},
			ExitTrigger:  "no",
			ExitMessage:  "I understand, thank you for your time. Have a nice day!",
		},
		{
			Key:          "qualification",
			Prompt:       "What is your highest qualification? Options are: 10th, 12th, graduate, or post-graduate.",
			ValidOptions: []string{"10th", "12th", "graduate", "post-graduate"},
		},
		{
			Key:          "diploma",
			Prompt:       "Do you hold a three year diploma? Please answer yes or no.",
			ValidOptions: []string{"yes", "no"},
			Condition:    &Condition{Field: "qualification", Equals: "10th"},
		},
		{
			Key:          "job_type",
			Prompt:       "What kind of position are you looking for? Options are: full-time, part-time, or freelance.",
			ValidOptions: []string{"full-time", "part-time", "freelance"},
		},
		{
			Key:          "location",
			Prompt:       "Which location would you prefer? Options are: amritsar, vadodara, kolkata, bangalore, gurugram, or pune.",
			ValidOptions: []string{"amritsar", "vadodara", "kolkata", "bangalore", "gurugram", "pune"},
		},
		{
			Key:          "interview_mode",
			Prompt:       "How would you like to be interviewed? Options are: in-person, virtual, or phone.",
			ValidOptions: []string{"in-person", "virtual", "phone"},
		},
	}
}

// LoadScript reads a question script from a JSON file and validates it.
func LoadScript(path string) ([]QuestionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	var questions []QuestionSpec
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("failed to parse script file %s: %w", path, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("script file %s contains no questions", path)
	}
	for i := range questions {
		if err := questions[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid script file %s: %w", path, err)
		}
	}
	return questions, nil
}
