package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/career-agent/internal/metrics"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), DefaultAnthropicConfig(), "")
	assert.Error(t, err)

	_, err = NewClient(context.Background(), nil, "")
	assert.Error(t, err)
}

func TestNewClient_Anthropic(t *testing.T) {
	c, err := NewClient(context.Background(), DefaultAnthropicConfig(), "test-key")
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)
	assert.NoError(t, c.Close())
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Blob{MIMEType: "image/png"}, genai.Text(`1}`)}},
	}}}
	text, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, errNoCandidates)

	_, err = responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.ErrorIs(t, err, errNoText)

	_, err = responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Blob{}}},
	}}})
	assert.ErrorIs(t, err, errNoText)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestObserve(t *testing.T) {
	ok := metrics.ModelRequests.WithLabelValues("gemini", "lite", "ok")
	failed := metrics.ModelRequests.WithLabelValues("gemini", "lite", "error")
	input := metrics.ModelTokens.WithLabelValues("gemini", "lite", "input")
	okBefore, failedBefore, inputBefore := counterValue(t, ok), counterValue(t, failed), counterValue(t, input)

	observe(ProviderGemini, TierLite, time.Now(), usage{input: 120, output: 30}, nil)
	observe(ProviderGemini, TierLite, time.Now(), usage{input: 999}, errors.New("quota"))

	assert.Equal(t, okBefore+1, counterValue(t, ok))
	assert.Equal(t, failedBefore+1, counterValue(t, failed))
	assert.Equal(t, inputBefore+120, counterValue(t, input))
}
