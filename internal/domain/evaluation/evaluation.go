// Package evaluation holds the staff evaluation model: an assistant-graded
// review of a stored tutoring transcript.
package evaluation

import (
	"regexp"
	"strconv"
	"time"
)

// Evaluation is one graded review of a conversation. Quality and Confidence
// are percentages extracted from the evaluator assistant's response.
type Evaluation struct {
	ID         string    `json:"id"`
	UserID     int       `json:"user_id"`
	Name       string    `json:"conversation_name"`
	Quality    int       `json:"quality"`
	Confidence int       `json:"confidence"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	qualityRe    = regexp.MustCompile(`Quality of Conversation\D+(\d+)%`)
	confidenceRe = regexp.MustCompile(`Confidence\D+(\d+)%`)
)

// ExtractScores pulls the quality and confidence percentages out of an
// evaluator response and returns the response with the score lines removed.
// A score the evaluator omitted stays 0.
func ExtractScores(response string) (quality, confidence int, text string) {
	if m := qualityRe.FindStringSubmatch(response); m != nil {
		quality, _ = strconv.Atoi(m[1])
	}
	if m := confidenceRe.FindStringSubmatch(response); m != nil {
		confidence, _ = strconv.Atoi(m[1])
	}
	text = qualityRe.ReplaceAllString(response, "")
	text = confidenceRe.ReplaceAllString(text, "")
	return quality, confidence, text
}
