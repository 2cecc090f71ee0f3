package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/career-agent/internal/llm"
	"github.com/jonathan/career-agent/internal/prompts"
	"github.com/jonathan/career-agent/internal/schemas"
	"github.com/jonathan/career-agent/internal/types"
)

// ErrNoGenerator is returned when a worker needs generation but no LLM client is configured.
var ErrNoGenerator = errors.New("no generation engine configured")

// maxCorrections bounds self-correction of unusable generation output within one attempt.
const maxCorrections = 1

// generate makes one generation call, validates the result against schema and decodes it
// into out. Unusable output is retried with a correction note while budget remains.
func generate(ctx context.Context, s *Session, client llm.Client, tier llm.ModelTier, prompt, schema string, out any) error {
	if client == nil {
		return ErrNoGenerator
	}

	current := prompt
	var lastErr error
	for attempt := 0; attempt <= maxCorrections; attempt++ {
		if attempt > 0 && s.Remaining() == 0 {
			break
		}

		var raw string
		err := s.Call(ctx, ToolGenerate, func(ctx context.Context) error {
			var genErr error
			raw, genErr = client.GenerateJSON(ctx, current, tier)
			return genErr
		})
		if err != nil {
			// Budget, capability and transport failures are not corrected by re-prompting.
			return err
		}

		if lastErr = decode(raw, schema, out); lastErr == nil {
			return nil
		}
		current = prompt + "\n\n" + prompts.Format(prompts.Agent(prompts.KeyJSONCorrection), map[string]string{
			"Error": lastErr.Error(),
		})
	}
	return lastErr
}

func decode(raw, schema string, out any) error {
	raw = llm.CleanJSONBlock(raw)
	if err := schemas.Validate(schema, raw); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", schema, err)
	}
	return nil
}

// withFeedback appends the previous attempt's rejection reasons to a prompt.
func withFeedback(prompt string, feedback []types.Rejection) string {
	if len(feedback) == 0 {
		return prompt
	}
	return prompt + "\n\n" + prompts.Format(prompts.Agent(prompts.KeyFeedback), map[string]string{
		"Feedback": FormatFeedback(feedback),
	})
}

// FormatFeedback renders rejection reasons one per line.
func FormatFeedback(feedback []types.Rejection) string {
	var sb strings.Builder
	for _, r := range feedback {
		sb.WriteString("- [")
		sb.WriteString(r.Code)
		sb.WriteString("]")
		if r.Field != "" {
			sb.WriteString(" ")
			sb.WriteString(r.Field)
		}
		sb.WriteString(": ")
		sb.WriteString(r.Details)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
