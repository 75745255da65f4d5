// Package orchestrator composes retrieval with the generation capability:
// it builds the grounded prompt, attaches citations, appends the finished
// turn to the conversation, and short-circuits ambiguous first questions
// into clarifying follow-ups.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docchat/internal/conversation"
	"docchat/internal/llm"
	"docchat/internal/retriever"
	"docchat/internal/rewriter"
	"docchat/internal/vectorindex"
	"docchat/pkg/types"
)

const (
	answerTemperature = 0.3
	answerMaxTokens   = 600

	// historyWindow is how many prior turns appear in the answer prompt.
	historyWindow = 3

	// answerPreviewLen truncates prior assistant answers in the prompt.
	answerPreviewLen = 200
)

// NoResultsAnswer is returned without calling the language model when
// retrieval produces zero chunks.
const NoResultsAnswer = "I couldn't find any relevant information in the indexed documents to answer your question. Could you please rephrase or ask about something else?"

const systemPrompt = "You are a document-based Q&A assistant. You understand conversation context but only answer from provided documents. You're helpful and direct."

// Orchestrator answers questions grounded in retrieved context.
type Orchestrator struct {
	rewriter  *rewriter.Rewriter
	retriever *retriever.Retriever
	gen       llm.Generator
	logger    *slog.Logger
}

// New creates an Orchestrator.
func New(rw *rewriter.Rewriter, retr *retriever.Retriever, gen llm.Generator, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{rewriter: rw, retriever: retr, gen: gen, logger: logger}
}

// Answer runs one chat turn. First questions of a session are screened for
// ambiguity and may short-circuit into a clarifying question, in which
// case no turn is appended to history. Every other outcome, including the
// canned no-information answer, is appended before returning.
func (o *Orchestrator) Answer(ctx context.Context, question string, history *conversation.History) (types.AnswerResult, error) {
	if history.Len() == 0 {
		if clarity := o.rewriter.CheckClarity(ctx, question); !clarity.Clear {
			o.logger.Info("question ambiguous, asking for clarification", "question", question)
			return types.AnswerResult{Answer: clarity.FollowUp, IsClarification: true}, nil
		}
	}

	res, err := o.retriever.Retrieve(ctx, question, history)
	if err != nil {
		return types.AnswerResult{}, err
	}

	result := types.AnswerResult{}
	if res.Rewritten {
		result.RewrittenQuestion = res.Query
	}

	if len(res.Chunks) == 0 {
		result.Answer = NoResultsAnswer
		o.appendTurn(history, question, res.Query, result)
		return result, nil
	}

	prompt := buildPrompt(res.Chunks, question, history.Recent(historyWindow))
	answer, err := o.gen.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		return types.AnswerResult{}, err
	}

	result.Answer = answer
	result.CitedTitles = citedTitles(res.Chunks)
	o.appendTurn(history, question, res.Query, result)
	return result, nil
}

func (o *Orchestrator) appendTurn(history *conversation.History, question, query string, result types.AnswerResult) {
	history.Append(types.Turn{
		Question:          question,
		RewrittenQuestion: query,
		Answer:            result.Answer,
		CitedTitles:       result.CitedTitles,
		Timestamp:         time.Now(),
	})
}

// buildPrompt assembles the grounded generation prompt: numbered document
// sections, recent conversation, and instructions to answer only from the
// supplied context and to state insufficiency explicitly.
func buildPrompt(chunks []vectorindex.SearchResult, question string, turns []types.Turn) string {
	var sections strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&sections, "[Document Section %d]\n%s\n\n", i+1, c.Chunk.Text)
	}

	var hist strings.Builder
	if len(turns) > 0 {
		hist.WriteString("\nRECENT CONVERSATION:\n")
		for _, turn := range turns {
			hist.WriteString("User: " + turn.Question + "\n")
			answer := turn.Answer
			if len(answer) > answerPreviewLen {
				answer = answer[:answerPreviewLen] + "..."
			}
			hist.WriteString("Assistant: " + answer + "\n")
		}
		hist.WriteString("\n(Use this conversation context to understand follow-up questions)\n")
	}

	return fmt.Sprintf(`You are a helpful AI assistant answering questions about documents.

DOCUMENT CONTENT:
%s%s
CURRENT USER QUESTION: %s

CRITICAL INSTRUCTIONS:
1. Answer ONLY using information from the DOCUMENT CONTENT above
2. Use the conversation history to understand context for follow-up questions
3. If the user refers to something from previous messages (like "it", "that", "the technique"), use the conversation to understand what they mean, but ANSWER from the documents
4. Include inline citations: "According to the document..." or "As mentioned in the guide..."
5. If documents don't contain the answer, say: "I don't have enough information in the provided documents to answer that question."
6. Be direct and helpful - don't ask for clarification unless absolutely necessary
7. Keep answers clear and concise

ANSWER:`, sections.String(), hist.String(), question)
}

// citedTitles returns the distinct document titles among the chunks
// actually used, in rank order.
func citedTitles(chunks []vectorindex.SearchResult) []string {
	seen := make(map[string]struct{}, len(chunks))
	var titles []string
	for _, c := range chunks {
		if _, ok := seen[c.Chunk.DocumentTitle]; ok {
			continue
		}
		seen[c.Chunk.DocumentTitle] = struct{}{}
		titles = append(titles, c.Chunk.DocumentTitle)
	}
	return titles
}
