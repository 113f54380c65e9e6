package services

import "strings"

const (
	jsonSystemInstruction  = "You are a helpful study assistant. Return only valid JSON."
	guideSystemInstruction = "You are a helpful study assistant that creates well-organized study guides."
)

// The content is embedded verbatim, including when it is empty. An empty
// prompt body just yields a thin or empty artifact.

func buildFlashcardPrompt(content string) string {
	var b strings.Builder

	b.WriteString("You are an expert flashcard creator. Generate 5-10 flashcards from the study material below.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(`Rules:
- Questions must be clear and self-contained
- Answers must be concise
- No two cards may test the same concept

JSON schema per card:
{"question": "string", "answer": "string"}
`)

	b.WriteString("\n---CONTENT---\n")
	b.WriteString(content)
	b.WriteString("\n---END---\n")

	return b.String()
}

func buildQuizPrompt(content string) string {
	var b strings.Builder

	b.WriteString("You are an expert educational assessor. Generate 5-8 multiple choice quiz questions from the study material below.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(`JSON schema per question:
{"question": "string", "options": ["string", "string", "string", "string"], "correctAnswer": int, "explanation": "string"}

Every question has exactly 4 options. correctAnswer is the index (0-3) of the correct option.
explanation briefly says why the correct option is right.
`)

	b.WriteString("\n---CONTENT---\n")
	b.WriteString(content)
	b.WriteString("\n---END---\n")

	return b.String()
}

func buildStudyGuidePrompt(content string) string {
	var b strings.Builder

	b.WriteString("Create a comprehensive study guide from the study material below.\n")
	b.WriteString("Organize it with clear headings, bullet points, and key concepts. Make it easy to review and study from.\n")
	b.WriteString("Return the guide only, with no commentary before or after it.\n")

	b.WriteString("\n---CONTENT---\n")
	b.WriteString(content)
	b.WriteString("\n---END---\n")

	return b.String()
}
