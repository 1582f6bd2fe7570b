// Package grading scores submitted answer sets against a frozen question
// set. Parsing is deliberately tolerant: submissions arrive from
// heterogeneous clients (QR/phone flows, kiosk frontends) that disagree on
// field names and boolean encodings.
package grading

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var ErrNoAnswers = errors.New("answers list is empty")

// Answer is one normalized submission entry.
type Answer struct {
	QuestionID uint
	Selected   bool
}

// GradedAnswer is an answer with correctness computed against the frozen set.
type GradedAnswer struct {
	QuestionID uint
	Selected   bool
	Correct    bool
}

// Result is the outcome of grading one submission.
type Result struct {
	Answers        []GradedAnswer
	Score          int
	TotalQuestions int
	Passed         bool
}

// Accepted key aliases for the question reference and the chosen value.
var (
	questionKeys = []string{"question", "questionId", "question_id", "id"}
	selectedKeys = []string{"selectedAnswer", "selected_answer", "answer", "selected", "value", "choice"}
)

// ParseAnswers normalizes raw submission entries. Entries with no
// recognizable question reference are dropped; an empty result is reported
// as ErrNoAnswers.
func ParseAnswers(raw []map[string]interface{}) ([]Answer, error) {
	if len(raw) == 0 {
		return nil, ErrNoAnswers
	}

	answers := make([]Answer, 0, len(raw))
	for _, entry := range raw {
		id, ok := lookupID(entry)
		if !ok {
			continue
		}
		selected := false
		for _, key := range selectedKeys {
			if v, present := entry[key]; present {
				selected = Truthy(v)
				break
			}
		}
		answers = append(answers, Answer{QuestionID: id, Selected: selected})
	}

	if len(answers) == 0 {
		return nil, ErrNoAnswers
	}
	return answers, nil
}

func lookupID(entry map[string]interface{}) (uint, bool) {
	for _, key := range questionKeys {
		if v, present := entry[key]; present {
			switch id := v.(type) {
			case float64:
				if id > 0 {
					return uint(id), true
				}
			case string:
				if n, err := strconv.ParseUint(id, 10, 64); err == nil && n > 0 {
					return uint(n), true
				}
			}
		}
	}
	return 0, false
}

// Truthy coerces common boolean encodings: "true"/"1"/"t" and "false"/"0"/"f"
// (case-insensitive), numbers by comparison with zero, and otherwise generic
// truthiness (non-empty, non-nil).
func Truthy(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "t":
			return true
		case "false", "0", "f":
			return false
		}
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	case nil:
		return false
	default:
		return true
	}
}

// Grade scores answers against the correctness lookup of the frozen question
// set. Question ids that are not in the lookup are never scored as correct.
// passMark <= 0 selects the default of 70% of the question count, rounded up.
func Grade(correctByQuestion map[uint]bool, answers []Answer, passMark int) Result {
	result := Result{
		Answers:        make([]GradedAnswer, 0, len(answers)),
		TotalQuestions: len(correctByQuestion),
	}

	for _, a := range answers {
		correct := false
		if want, known := correctByQuestion[a.QuestionID]; known {
			correct = a.Selected == want
		}
		if correct {
			result.Score++
		}
		result.Answers = append(result.Answers, GradedAnswer{
			QuestionID: a.QuestionID,
			Selected:   a.Selected,
			Correct:    correct,
		})
	}

	if passMark <= 0 {
		passMark = DefaultPassMark(result.TotalQuestions)
	}
	result.Passed = result.Score >= passMark
	return result
}

// DefaultPassMark is 70% of the question count, rounded up.
func DefaultPassMark(totalQuestions int) int {
	return int(math.Ceil(float64(totalQuestions) * 0.7))
}
