package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"studyroom-backend/internal/models"
)

var errNotArray = errors.New("decoded value is not an array")

// ParseFlashcards turns raw model text into flashcards. Any card missing a
// question or answer rejects the whole batch.
func ParseFlashcards(raw string) ([]models.Flashcard, error) {
	return parseArtifact(ArtifactFlashcards, raw, decodeFlashcards)
}

// ParseQuizQuestions turns raw model text into quiz questions. A question
// with the wrong number of options or an out-of-range correct index rejects
// the whole batch; indexes are never clamped.
func ParseQuizQuestions(raw string) ([]models.QuizQuestion, error) {
	return parseArtifact(ArtifactQuizQuestions, raw, decodeQuizQuestions)
}

// parseArtifact tries every array in raw and keeps the first non-empty one
// that decodes into a valid batch. A rejected batch outranks an empty one, so
// a stray [] never hides a bad payload.
func parseArtifact[T any](artifact Artifact, raw string, decode func([]json.RawMessage) ([]T, error)) ([]T, error) {
	payloads, err := arrayPayloads(raw)
	if errors.Is(err, errNotArray) {
		return []T{}, nil
	}
	if err != nil {
		return nil, &ParseError{Artifact: artifact, Err: err}
	}

	var firstErr error
	for _, items := range payloads {
		out, err := decode(items)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	if firstErr != nil {
		return nil, &ParseError{Artifact: artifact, Err: firstErr}
	}
	return []T{}, nil
}

func decodeFlashcards(items []json.RawMessage) ([]models.Flashcard, error) {
	cards := make([]models.Flashcard, 0, len(items))
	for i, item := range items {
		var rc struct {
			Question json.RawMessage `json:"question"`
			Answer   json.RawMessage `json:"answer"`
		}
		if err := json.Unmarshal(item, &rc); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		question, ok := stringField(rc.Question)
		if !ok {
			return nil, fmt.Errorf("item %d: question is required", i)
		}
		answer, ok := stringField(rc.Answer)
		if !ok {
			return nil, fmt.Errorf("item %d: answer is required", i)
		}
		cards = append(cards, models.Flashcard{Question: question, Answer: answer})
	}
	return cards, nil
}

func decodeQuizQuestions(items []json.RawMessage) ([]models.QuizQuestion, error) {
	questions := make([]models.QuizQuestion, 0, len(items))
	for i, item := range items {
		q, err := decodeQuizQuestion(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// ParseStudyGuide never fails: the trimmed text is the guide.
func ParseStudyGuide(raw string) string {
	return strings.TrimSpace(raw)
}

type rawQuizQuestion struct {
	Question           json.RawMessage `json:"question"`
	Options            json.RawMessage `json:"options"`
	CorrectAnswer      json.RawMessage `json:"correctAnswer"`
	CorrectAnswerIndex json.RawMessage `json:"correctAnswerIndex"`
	CorrectAnswerSnake json.RawMessage `json:"correct_answer_index"`
	Explanation        json.RawMessage `json:"explanation"`
}

func decodeQuizQuestion(item json.RawMessage) (models.QuizQuestion, error) {
	var rq rawQuizQuestion
	if err := json.Unmarshal(item, &rq); err != nil {
		return models.QuizQuestion{}, err
	}

	question, ok := stringField(rq.Question)
	if !ok {
		return models.QuizQuestion{}, errors.New("question is required")
	}

	var rawOptions []json.RawMessage
	if len(rq.Options) == 0 || json.Unmarshal(rq.Options, &rawOptions) != nil {
		return models.QuizQuestion{}, errors.New("options must be an array")
	}
	options := make([]string, 0, len(rawOptions))
	for j, ro := range rawOptions {
		opt, ok := stringField(ro)
		if !ok {
			return models.QuizQuestion{}, fmt.Errorf("option %d must be a non-empty string", j)
		}
		options = append(options, opt)
	}

	rawIndex := firstPresent(rq.CorrectAnswer, rq.CorrectAnswerIndex, rq.CorrectAnswerSnake)
	index, ok := integerField(rawIndex)
	if !ok {
		return models.QuizQuestion{}, errors.New("correct answer index must be an integer")
	}

	q := models.QuizQuestion{
		Question:           question,
		Options:            options,
		CorrectAnswerIndex: index,
	}
	if explanation, ok := stringField(rq.Explanation); ok {
		q.Explanation = explanation
	}

	if err := validateQuizQuestion(q); err != nil {
		return models.QuizQuestion{}, err
	}
	return q, nil
}

// validateFlashcards applies the flashcard rules to already-typed records,
// such as those supplied by the owner on update.
func validateFlashcards(cards []models.Flashcard) error {
	for i, c := range cards {
		if strings.TrimSpace(c.Question) == "" {
			return fmt.Errorf("item %d: question is required", i)
		}
		if strings.TrimSpace(c.Answer) == "" {
			return fmt.Errorf("item %d: answer is required", i)
		}
	}
	return nil
}

func validateQuizQuestions(questions []models.QuizQuestion) error {
	for i, q := range questions {
		if err := validateQuizQuestion(q); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func validateQuizQuestion(q models.QuizQuestion) error {
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("question is required")
	}
	if len(q.Options) != models.QuizOptionCount {
		return fmt.Errorf("expected %d options, got %d", models.QuizOptionCount, len(q.Options))
	}
	for j, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("option %d must be a non-empty string", j)
		}
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		return fmt.Errorf("correct answer index %d out of range [0,%d]", q.CorrectAnswerIndex, len(q.Options)-1)
	}
	return nil
}

// arrayPayloads returns the elements of every candidate span in raw that
// decodes as a JSON array, most likely first. It returns errNotArray when no
// span does and the text decodes to some other JSON value.
func arrayPayloads(raw string) ([][]json.RawMessage, error) {
	text := strings.TrimSpace(raw)

	candidates := arrayCandidates(text)
	var payloads [][]json.RawMessage
	var syntaxErr error
	for _, candidate := range candidates {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &items); err != nil {
			if syntaxErr == nil {
				syntaxErr = err
			}
			continue
		}
		payloads = append(payloads, items)
	}
	if len(payloads) > 0 {
		return payloads, nil
	}

	var value json.RawMessage
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		if syntaxErr != nil {
			return nil, fmt.Errorf("embedded array is not valid JSON: %w", syntaxErr)
		}
		return nil, err
	}

	value = bytes.TrimSpace(value)
	if len(value) == 0 || value[0] != '[' {
		return nil, errNotArray
	}

	var items []json.RawMessage
	if err := json.Unmarshal(value, &items); err != nil {
		return nil, err
	}
	return [][]json.RawMessage{items}, nil
}

// arrayCandidates lists the spans that may hold the array payload, most
// likely first: the outermost span from the first '[' to the last ']', then
// every balanced span starting at each '[' in order.
func arrayCandidates(text string) []string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}

	candidates := []string{text[start : end+1]}
	for i := start; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		if j := matchingBracket(text, i); j > i {
			span := text[i : j+1]
			if span != candidates[0] {
				candidates = append(candidates, span)
			}
		}
	}
	return candidates
}

// matchingBracket returns the index of the ']' closing the '[' at open,
// skipping brackets inside JSON strings, or -1.
func matchingBracket(text string, open int) int {
	depth := 0
	inString := false
	escaped := false

	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func integerField(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func firstPresent(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}
