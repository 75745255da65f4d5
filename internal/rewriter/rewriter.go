// Package rewriter turns possibly context-dependent questions into
// self-contained queries and screens first-turn questions for ambiguity.
// Both responsibilities delegate to the generation capability with
// different prompts; rewriting is a quality enhancement, so any failure
// falls back to the raw question rather than failing the request.
package rewriter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"docchat/internal/llm"
	"docchat/pkg/types"
)

// minClarityLength is the trimmed question length below which first-turn
// questions are screened for ambiguity. Longer questions are assumed clear.
const minClarityLength = 10

// historyWindow is how many prior turns feed the rewrite prompt.
const historyWindow = 3

// answerPreviewLen truncates prior assistant answers in prompts.
const answerPreviewLen = 200

// Clarity is the two-outcome result of the first-turn clarity check:
// either the question is clear, or it is ambiguous and FollowUp carries
// the clarifying question to return instead of an answer.
type Clarity struct {
	Clear    bool
	FollowUp string
}

// Rewriter delegates clarity checking and query rewriting to a Generator.
type Rewriter struct {
	gen    llm.Generator
	logger *slog.Logger
}

// New creates a Rewriter.
func New(gen llm.Generator, logger *slog.Logger) *Rewriter {
	return &Rewriter{gen: gen, logger: logger}
}

// CheckClarity classifies a first-turn question as clear or ambiguous.
// Only very short questions are screened; on any generator failure the
// question is assumed clear so the pipeline proceeds.
func (r *Rewriter) CheckClarity(ctx context.Context, question string) Clarity {
	if len(strings.TrimSpace(question)) >= minClarityLength {
		return Clarity{Clear: true}
	}

	prompt := fmt.Sprintf(`Is this question too vague to answer without more context?

Question: %q

Respond with ONLY a JSON object:
{
    "is_clear": true/false,
    "suggested_clarification": "clarifying question if needed"
}

Mark as clear (true) unless the question is extremely vague like "what?", "huh?", "more", etc.`, question)

	raw, err := r.gen.Generate(ctx, llm.Request{Prompt: prompt, Temperature: 0.1, MaxTokens: 150})
	if err != nil {
		r.logger.Warn("clarity check failed, assuming clear", "error", err)
		return Clarity{Clear: true}
	}

	raw = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(raw, "```json", ""), "```", ""))
	var result struct {
		IsClear                bool   `json:"is_clear"`
		SuggestedClarification string `json:"suggested_clarification"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		r.logger.Warn("clarity check returned unparseable output, assuming clear", "error", err)
		return Clarity{Clear: true}
	}
	if !result.IsClear && result.SuggestedClarification != "" {
		return Clarity{FollowUp: result.SuggestedClarification}
	}
	return Clarity{Clear: true}
}

// Rewrite produces a self-contained reformulation of question using prior
// turns to resolve pronouns and ellipsis. Falls back to the raw question
// on generator failure, empty output, or an output that only differs in
// case or punctuation.
func (r *Rewriter) Rewrite(ctx context.Context, question string, turns []types.Turn) string {
	if len(turns) == 0 {
		return question
	}
	if len(turns) > historyWindow {
		turns = turns[len(turns)-historyWindow:]
	}

	var hist strings.Builder
	for _, turn := range turns {
		hist.WriteString("User: " + turn.Question + "\n")
		hist.WriteString("Assistant: " + truncate(turn.Answer, answerPreviewLen) + "\n")
	}

	prompt := fmt.Sprintf(`Given this conversation history, rephrase the user's latest question to be standalone and include necessary context.

CONVERSATION HISTORY:
%s
LATEST USER QUESTION: %q

TASK: Rephrase this question so it's clear even without the conversation history.

EXAMPLES:
- If user asks "proper alignment" after discussing "breathing with movement in hatha yoga", rephrase as: "What is proper alignment in breathing with movement in hatha yoga?"
- If user asks "tell me more" after discussing "Product X", rephrase as: "Tell me more about Product X"
- If user asks "benefits" after discussing "meditation", rephrase as: "What are the benefits of meditation?"
- If already clear and standalone, return the EXACT same question

RULES:
1. Include context from previous messages
2. Make it specific and searchable
3. If question is already clear, return it EXACTLY as-is
4. Keep it concise but complete
5. Return ONLY the rephrased question, nothing else

REPHRASED QUESTION:`, hist.String(), question)

	raw, err := r.gen.Generate(ctx, llm.Request{Prompt: prompt, Temperature: 0.2, MaxTokens: 150})
	if err != nil {
		r.logger.Warn("rewrite failed, using raw question", "error", err)
		return question
	}

	rewritten := cleanRewrite(raw)
	if rewritten == "" || canonical(rewritten) == canonical(question) {
		return question
	}
	return rewritten
}

// cleanRewrite strips surrounding quotes and a short leading label such as
// "Rephrased question:" that models sometimes add despite instructions.
func cleanRewrite(s string) string {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, ":"); idx > 0 {
		label := s[:idx]
		if len(strings.Fields(label)) < 5 && !strings.ContainsAny(label, ".?!") {
			s = strings.TrimSpace(s[idx+1:])
			s = strings.Trim(s, `"'`)
		}
	}
	return s
}

// canonical lowercases and strips trailing punctuation for comparing a
// rewrite against the original question.
func canonical(s string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), "?.,! "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
