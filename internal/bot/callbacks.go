package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Constants for callback data
const (
	callbackSubjects   = "subjects"
	callbackStats      = "stats"
	callbackHelp       = "help"
	callbackShowAnswer = "show"
	callbackEnd        = "end"
	callbackQuizNext   = "qnext"

	prefixReview = "review_"
	prefixQuiz   = "quiz_"
	prefixGrade  = "grade_"
	prefixAnswer = "qa_"
	prefixCard   = "card_"
	prefixDelete = "del_"

	actionReview = "review"
	actionQuiz   = "quiz"
	actionGrade  = "grade"
	actionAnswer = "qa"
	actionCard   = "card"
	actionDelete = "del"
)

// callbackAction is a parsed inline-button payload
type callbackAction struct {
	Kind  string // one of the callback constants, or a prefix without "_"
	ID    int64  // subject id for review/quiz, item id for grade/qa/card/del
	Value int    // quality for grade, option index for qa
}

func reviewData(subjectID int64) string { return prefixReview + strconv.FormatInt(subjectID, 10) }
func quizData(subjectID int64) string   { return prefixQuiz + strconv.FormatInt(subjectID, 10) }
func cardData(itemID int64) string      { return prefixCard + strconv.FormatInt(itemID, 10) }
func deleteData(itemID int64) string    { return prefixDelete + strconv.FormatInt(itemID, 10) }

func gradeData(itemID int64, quality int) string {
	return fmt.Sprintf("%s%d_%d", prefixGrade, itemID, quality)
}

func answerData(itemID int64, option int) string {
	return fmt.Sprintf("%s%d_%d", prefixAnswer, itemID, option)
}

// parseCallback decodes callback data produced by the helpers above
func parseCallback(data string) (callbackAction, error) {
	switch data {
	case callbackSubjects, callbackStats, callbackHelp, callbackShowAnswer, callbackEnd, callbackQuizNext:
		return callbackAction{Kind: data}, nil
	}

	for _, prefix := range []string{prefixReview, prefixQuiz, prefixCard, prefixDelete} {
		if rest, ok := strings.CutPrefix(data, prefix); ok {
			id, err := strconv.ParseInt(rest, 10, 64)
			if err != nil {
				return callbackAction{}, fmt.Errorf("invalid id in callback %q: %w", data, err)
			}
			return callbackAction{Kind: strings.TrimSuffix(prefix, "_"), ID: id}, nil
		}
	}

	for _, prefix := range []string{prefixGrade, prefixAnswer} {
		rest, ok := strings.CutPrefix(data, prefix)
		if !ok {
			continue
		}
		idPart, valuePart, found := strings.Cut(rest, "_")
		if !found {
			return callbackAction{}, fmt.Errorf("malformed callback %q", data)
		}
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			return callbackAction{}, fmt.Errorf("invalid item id in callback %q: %w", data, err)
		}
		value, err := strconv.Atoi(valuePart)
		if err != nil {
			return callbackAction{}, fmt.Errorf("invalid value in callback %q: %w", data, err)
		}
		return callbackAction{Kind: strings.TrimSuffix(prefix, "_"), ID: id, Value: value}, nil
	}

	return callbackAction{}, fmt.Errorf("unknown callback %q", data)
}
