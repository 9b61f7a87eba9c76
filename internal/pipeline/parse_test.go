package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagelearn/sage-api/internal/domain"
)

const validLessonsJSON = `{"lessons": [
	{"title": "Photovoltaic Basics", "overview": "How solar cells convert light.",
	 "key_concepts": ["p-n junction"], "examples": ["rooftop panel"]},
	{"title": "Inverters", "overview": "Turning DC into usable AC.",
	 "key_concepts": ["MPPT"], "examples": ["string inverter"]}
]}`

const validQuestionsJSON = `{"related_questions": [
	{"question": "How do solar cells work?", "category": "basic", "focus_area": "physics"},
	{"question": "What limits panel efficiency?", "category": "advanced", "focus_area": "materials"}
]}`

func TestExtractJSON_FencedBlock(t *testing.T) {
	t.Parallel()

	raw := "Here you go:\n```json\n{\"lessons\": []}\n```\nHope that helps!"

	extracted, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"lessons": []}`, extracted)
}

func TestExtractJSON_BraceSpan(t *testing.T) {
	t.Parallel()

	raw := `Sure! {"a": {"b": 1}} trailing commentary`

	extracted, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, extracted)
}

func TestExtractJSON_FenceAndBracesAgree(t *testing.T) {
	t.Parallel()

	payload := `{"lessons": [{"title": "T", "overview": "O"}]}`
	fenced := "```json\n" + payload + "\n```"
	bare := "preamble " + payload + " postamble"

	fromFence, err := ExtractJSON(fenced)
	require.NoError(t, err)
	fromBraces, err := ExtractJSON(bare)
	require.NoError(t, err)

	assert.JSONEq(t, fromFence, fromBraces,
		"both extraction paths must recover the same object")
}

func TestExtractJSON_NoJSON(t *testing.T) {
	t.Parallel()

	_, err := ExtractJSON("I could not produce any structured output, sorry.")
	assert.ErrorIs(t, err, ErrNoJSONFound)
}

func TestExtractJSON_UnterminatedFenceFallsBackToBraces(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"lessons\": []}"

	extracted, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"lessons": []}`, extracted)
}

func TestDecodeLessons_Strict(t *testing.T) {
	t.Parallel()

	lessons, err := DecodeLessons(validLessonsJSON)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "Photovoltaic Basics", lessons[0].Title)
	assert.Equal(t, []string{"MPPT"}, lessons[1].KeyConcepts)
}

func TestDecodeLessons_ManualFallback(t *testing.T) {
	t.Parallel()

	wrapped := "Of course! Here is the curriculum:\n```json\n" + validLessonsJSON + "\n```"

	lessons, err := DecodeLessons(wrapped)
	require.NoError(t, err, "chatty output around a valid object must still decode")
	assert.Len(t, lessons, 2)
}

func TestDecodeLessons_ParseFailureIsTerminal(t *testing.T) {
	t.Parallel()

	_, err := DecodeLessons("no structure here at all")
	assert.ErrorIs(t, err, ErrParse)
}

func TestDecodeLessons_EmptyListIsSchemaError(t *testing.T) {
	t.Parallel()

	_, err := DecodeLessons(`{"lessons": []}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestDecodeLessons_InvalidLessonRejected(t *testing.T) {
	t.Parallel()

	_, err := DecodeLessons(`{"lessons": [{"title": "", "overview": "x"}]}`)
	assert.Error(t, err)
}

func TestDecodeRelatedQuestions_Strict(t *testing.T) {
	t.Parallel()

	questions, err := DecodeRelatedQuestions(validQuestionsJSON)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, domain.QuestionCategoryBasic, questions[0].Category)
}

func TestDecodeRelatedQuestions_NestedEnvelope(t *testing.T) {
	t.Parallel()

	nested := `{"questions": {"related_questions": [
		{"question": "Why silicon?", "category": "intermediate", "focus_area": "materials"}
	]}}`

	questions, err := DecodeRelatedQuestions(nested)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "Why silicon?", questions[0].Question)
}

func TestDecodeRelatedQuestions_InvalidCategory(t *testing.T) {
	t.Parallel()

	_, err := DecodeRelatedQuestions(
		`{"related_questions": [{"question": "Q?", "category": "expert", "focus_area": "f"}]}`)
	assert.ErrorIs(t, err, ErrParse)
}

func TestDecodeFlashcards_BothEnvelopes(t *testing.T) {
	t.Parallel()

	wrapped := `{"flashcards": {"cards": [{"term": "MPPT", "explanation": "Maximum power point tracking."}]}}`
	flat := `{"cards": [{"term": "MPPT", "explanation": "Maximum power point tracking."}]}`

	fromWrapped, err := DecodeFlashcards(wrapped)
	require.NoError(t, err)
	fromFlat, err := DecodeFlashcards(flat)
	require.NoError(t, err)

	assert.Equal(t, fromWrapped, fromFlat)
}

func TestDecodeFlashcards_EmptyCardRejected(t *testing.T) {
	t.Parallel()

	_, err := DecodeFlashcards(`{"cards": [{"term": "", "explanation": "x"}]}`)
	assert.ErrorIs(t, err, ErrParse)
}

func TestDecodeQuiz_WrappedEnvelope(t *testing.T) {
	t.Parallel()

	raw := `{"quiz": {
		"true_false_questions": [
			{"question": "Panels work at night.", "correct_answer": false, "explanation": "No sunlight, no output."}
		],
		"multiple_choice_questions": [
			{"question": "What does MPPT optimize?", "options": ["Power", "Voltage", "Color", "Weight"],
			 "correct_answer": 0, "explanation": "It tracks the maximum power point."}
		]
	}}`

	quiz, err := DecodeQuiz(raw)
	require.NoError(t, err)
	assert.Len(t, quiz.TrueFalse, 1)
	assert.Len(t, quiz.MultipleChoice, 1)
	assert.False(t, quiz.TrueFalse[0].CorrectAnswer)
}

func TestDecodeQuiz_TopLevelEnvelope(t *testing.T) {
	t.Parallel()

	raw := `{"true_false_questions": [
		{"question": "Inverters output AC.", "correct_answer": true, "explanation": "That is their job."}
	], "multiple_choice_questions": []}`

	quiz, err := DecodeQuiz(raw)
	require.NoError(t, err)
	assert.Len(t, quiz.TrueFalse, 1)
}

func TestDecodeQuiz_WrongOptionCount(t *testing.T) {
	t.Parallel()

	raw := `{"multiple_choice_questions": [
		{"question": "Q?", "options": ["a", "b"], "correct_answer": 0, "explanation": "e"}
	], "true_false_questions": []}`

	_, err := DecodeQuiz(raw)
	assert.ErrorIs(t, err, ErrParse)
}

func TestDecodeQuiz_Fenced(t *testing.T) {
	t.Parallel()

	raw := "```json\n" + `{"quiz": {"true_false_questions": [
		{"question": "Q", "correct_answer": true, "explanation": "E"}
	], "multiple_choice_questions": []}}` + "\n```"

	quiz, err := DecodeQuiz(raw)
	require.NoError(t, err)
	assert.Len(t, quiz.TrueFalse, 1)
}
