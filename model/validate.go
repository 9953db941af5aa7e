package model

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ValidationIssue is a user-facing description of an incomplete definition or answer.
type ValidationIssue string

func (i ValidationIssue) Error() string { return string(i) }

// InputIssues lists what is missing from a single input definition.
// Every issue is prefixed with id. The result is empty, never nil, when input is well formed.
func InputIssues(input InputField, id string) []string {
	issues := []string{}
	if len(input.Description) == 0 {
		issues = append(issues, id+": Description is required")
	}
	if len(input.Label) == 0 {
		issues = append(issues, id+": Label is required")
	}

	switch data := input.Data.(type) {
	case ChoiceData:
		if len(data.Values) == 0 {
			issues = append(issues, id+": Choices are required")
		}
	case NumberData:
	case StringData:
	default:
		// only reachable with a zero InputField
		issues = append(issues, id+": Type is required")
	}
	return issues
}

// Issues lists every problem that prevents publishing the form.
// Inputs are identified by their 1-based position.
func (f Form) Issues() []string {
	issues := []string{}
	if strings.TrimSpace(f.Title) == "" {
		issues = append(issues, "Title is required")
	}
	if len(f.Inputs) == 0 {
		issues = append(issues, "At least one input is required")
	}
	for i, input := range f.Inputs {
		issues = append(issues, InputIssues(input, strconv.Itoa(i+1))...)
	}
	return issues
}

// Validate returns nil for a publishable form, otherwise a *multierror.Error of ValidationIssue.
func (f Form) Validate() error {
	var result *multierror.Error
	for _, issue := range f.Issues() {
		result = multierror.Append(result, ValidationIssue(issue))
	}
	return result.ErrorOrNil()
}

// AnswerIssues checks a submission keyed by FieldKeys against the form's inputs.
func (f Form) AnswerIssues(answers map[string]string) []string {
	issues := []string{}
	keys := FieldKeys(f.Inputs)
	known := make(map[string]bool, len(keys))

	for i, input := range f.Inputs {
		key := keys[i]
		known[key] = true

		value, ok := answers[key]
		if !ok || strings.TrimSpace(value) == "" {
			issues = append(issues, fmt.Sprintf("%s: Answer is required", key))
			continue
		}

		switch data := input.Data.(type) {
		case ChoiceData:
			if !slices.Contains(data.Values, value) {
				issues = append(issues, fmt.Sprintf("%s: %q is not one of the choices", key, value))
			}
		case NumberData:
			if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
				issues = append(issues, fmt.Sprintf("%s: %q is not a number", key, value))
			}
		case StringData:
		}
	}

	unknown := []string{}
	for key := range answers {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	slices.Sort(unknown)
	for _, key := range unknown {
		issues = append(issues, fmt.Sprintf("%s: Unknown field", key))
	}
	return issues
}
