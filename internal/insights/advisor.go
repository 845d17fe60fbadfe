// Package insights asks a generative model for advice about the stored
// transactions.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"google.golang.org/genai"
)

const (
	// DefaultModelName is used when no model is configured.
	DefaultModelName = "gemini-2.5-flash"

	// sampleSize caps how many records are sent to the model.
	sampleSize = 50

	temperature = 0.7

	promptPrefix      = "Analise estes dados financeiros (JSON) e forneça 3 dicas práticas em português para melhorar a saúde financeira: "
	systemInstruction = "Você é um consultor financeiro sênior especializado em economia doméstica e pequenos negócios."

	// FallbackMessage is returned whenever the model cannot answer.
	FallbackMessage = "Desculpe, não consegui analisar seus dados no momento. Tente novamente mais tarde."
)

// Advisor produces advice text for a record set.
type Advisor interface {
	Insights(ctx context.Context, records []domain.TransactionRecord) (string, error)
}

// Generator sends a prompt to a model and returns its text answer.
type Generator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// sampleRecord is what the model sees of a record.
type sampleRecord struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
}

// GeminiAdvisor implements Advisor. It never returns an error: failures
// yield FallbackMessage.
type GeminiAdvisor struct {
	gen Generator
}

// NewGeminiAdvisor creates an advisor backed by gen.
func NewGeminiAdvisor(gen Generator) *GeminiAdvisor {
	return &GeminiAdvisor{gen: gen}
}

// Insights implements Advisor.
func (a *GeminiAdvisor) Insights(ctx context.Context, records []domain.TransactionRecord) (string, error) {
	log := logger.FromContext(ctx)

	prompt, err := BuildPrompt(records)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build insights prompt")
		return FallbackMessage, nil
	}

	text, err := a.gen.Generate(ctx, prompt, systemInstruction)
	if err != nil {
		log.Error().Err(err).Msg("Insights generation failed")
		return FallbackMessage, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		log.Warn().Msg("Empty response from model")
		return FallbackMessage, nil
	}
	return text, nil
}

// BuildPrompt serialises up to the first 50 records after the instruction.
func BuildPrompt(records []domain.TransactionRecord) (string, error) {
	records = records[:min(len(records), sampleSize)]
	sample := make([]sampleRecord, len(records))
	for i, r := range records {
		sample[i] = sampleRecord{
			Date:        r.Date,
			Type:        r.Type,
			Description: r.Description,
			Amount:      r.Amount.String(),
			Category:    r.Category,
		}
	}

	data, err := json.Marshal(sample)
	if err != nil {
		return "", fmt.Errorf("BuildPrompt: marshal records: %w", err)
	}
	return promptPrefix + string(data), nil
}

// GeminiGenerator implements Generator with the Gemini API. The client is
// created on first use from the environment (GEMINI_API_KEY or Vertex AI
// settings).
type GeminiGenerator struct {
	model string

	once      sync.Once
	client    *genai.Client
	clientErr error
}

// NewGeminiGenerator creates a generator for model; empty means
// DefaultModelName.
func NewGeminiGenerator(model string) *GeminiGenerator {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiGenerator{model: model}
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt, system string) (string, error) {
	g.once.Do(func() {
		g.client, g.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
		})
	})
	if g.clientErr != nil {
		return "", fmt.Errorf("Generate: create genai client: %w", g.clientErr)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
		Temperature: genai.Ptr[float32](temperature),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}
	return resp.Text(), nil
}
