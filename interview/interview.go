// Package interview generates screening questions from a resume and turns
// candidate answers into a written evaluation.
package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/vinayprograms/talentkit/errors"
	"github.com/vinayprograms/talentkit/llm"
	"github.com/vinayprograms/talentkit/logging"
)

// QuestionCount is how many questions the prompt asks for.
const QuestionCount = 10

// Evaluation is the generator's assessment of a candidate.
type Evaluation struct {
	Evaluation string `json:"evaluation"`
	Advice     string `json:"advice"`
}

// Interviewer drives the question and evaluation prompts.
type Interviewer struct {
	gen llm.Generator
	log *logging.Logger
}

// New creates an interviewer backed by gen.
func New(gen llm.Generator, log *logging.Logger) *Interviewer {
	if log == nil {
		log = logging.Nop()
	}
	return &Interviewer{gen: gen, log: log.WithComponent("interview")}
}

// QuestionsPrompt is the prompt used by Questions.
func QuestionsPrompt(resumeText string) string {
	return fmt.Sprintf(`This is a candidate's resume:
%s

Write %d questions to ask this candidate in an interview. Base them on the skills, experience and job titles in the resume and avoid generic questions. Together they should assess technical skill, aptitude, reasoning, communication and problem solving.
Put each question on its own line with no preamble.`, resumeText, QuestionCount)
}

// Questions asks the generator for interview questions about resumeText.
func (iv *Interviewer) Questions(ctx context.Context, resumeText string) ([]string, error) {
	out, err := iv.gen.Generate(ctx, QuestionsPrompt(resumeText))
	if err != nil {
		iv.log.GenerationFailed("questions", err)
		return nil, errors.WrapWithCode(err, errors.ErrCodeGeneration, "generating questions")
	}
	qs := ParseQuestions(out)
	if len(qs) == 0 {
		return nil, errors.Generation("generator returned no questions")
	}
	return qs, nil
}

var listMarker = regexp.MustCompile(`^(?:\(?\d+[.):]|[-*•])\s+`)

// ParseQuestions splits a response into one question per non-blank line with
// list numbering and bullets removed.
func ParseQuestions(response string) []string {
	var out []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// EvaluatePrompt is the prompt used by Evaluate.
func EvaluatePrompt(answers []string) string {
	return fmt.Sprintf(`These are a candidate's interview answers: %s

Write a detailed evaluation of the candidate's skills, strengths, experience, education and soft skills, and advice on what they could learn or improve.
Respond with a JSON object and nothing else: {"evaluation": "...", "advice": "..."}`,
		strings.Join(answers, ", "))
}

// Evaluate asks the generator to assess answers.
func (iv *Interviewer) Evaluate(ctx context.Context, answers []string) (*Evaluation, error) {
	if len(answers) == 0 {
		return nil, errors.InvalidInput("no answers provided")
	}
	out, err := iv.gen.Generate(ctx, EvaluatePrompt(answers))
	if err != nil {
		iv.log.GenerationFailed("evaluate", err)
		return nil, errors.WrapWithCode(err, errors.ErrCodeGeneration, "evaluating answers")
	}
	ev, err := ParseEvaluation(out)
	if err != nil {
		iv.log.GenerationFailed("evaluate", err)
		return nil, err
	}
	return ev, nil
}

// ParseEvaluation reads a generator response. A JSON object with an
// "evaluation" field is preferred; otherwise the text must have the form
// "Evaluation: ... Advice: ..." (markdown asterisks ignored).
func ParseEvaluation(response string) (*Evaluation, error) {
	if ev, ok := parseJSON(response); ok {
		if ev.Evaluation == "" {
			return nil, errors.Generation("evaluation is empty")
		}
		return ev, nil
	}

	text := strings.ReplaceAll(response, "*", "")
	idx := strings.Index(text, "Advice:")
	if idx < 0 {
		return nil, errors.Generation("response has no Advice section",
			errors.WithMetadata("response_chars", fmt.Sprint(len(response))))
	}
	eval := strings.TrimSpace(text[:idx])
	eval = strings.TrimSpace(strings.TrimPrefix(eval, "Evaluation:"))
	if eval == "" {
		return nil, errors.Generation("evaluation is empty")
	}
	return &Evaluation{
		Evaluation: eval,
		Advice:     strings.TrimSpace(text[idx+len("Advice:"):]),
	}, nil
}

func parseJSON(response string) (*Evaluation, bool) {
	s := strings.TrimSpace(response)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var ev Evaluation
	if err := json.Unmarshal([]byte(s), &ev); err != nil {
		return nil, false
	}
	ev.Evaluation = strings.TrimSpace(ev.Evaluation)
	ev.Advice = strings.TrimSpace(ev.Advice)
	return &ev, true
}
