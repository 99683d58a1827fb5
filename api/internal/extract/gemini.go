package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"slip-bot/api/internal/slip"
	"slip-bot/api/internal/util"
)

const slipInstruction = `Você lê FOTOS de comprovantes de apostas esportivas (bilhetes) de casas brasileiras.
Extraia UMA aposta por imagem. Responda SOMENTE JSON, sem comentários:
{
  "book": string,        // nome da casa de apostas como aparece no bilhete
  "event": string,       // evento/jogo, ex.: "Flamengo x Vasco"
  "market": string,      // mercado/seleção, ex.: "Resultado final - Flamengo"
  "odd": number|null,    // odd decimal
  "stake": number|null,  // valor apostado em reais
  "sport": string,       // esporte, ex.: "futebol"; vazio se não souber
  "match_date": string,  // data do evento em YYYY-MM-DD ou DD/MM/AAAA; vazio se ausente
  "confidence": number   // 0..1, sua confiança de que todos os campos estão corretos
}
Nunca invente valores: deixe null/vazio o que não for legível e reduza a confiança.`

// Gemini extracts slips with a Gemini vision model.
type Gemini struct {
	APIKey string
	Model  string
}

func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{APIKey: strings.TrimSpace(apiKey), Model: strings.TrimSpace(model)}
}

func (g *Gemini) Extract(ctx context.Context, img Image) (slip.Record, error) {
	if g.APIKey == "" {
		return slip.Record{}, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return slip.Record{}, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(slipInstruction)}}

	var user strings.Builder
	user.WriteString("Extraia a aposta desta imagem.")
	if h := strings.TrimSpace(img.BookHint); h != "" {
		user.WriteString("\nCasa informada pelo usuário: " + h)
	}
	if c := strings.TrimSpace(img.Caption); c != "" {
		user.WriteString("\nLegenda: " + c)
	}
	parts := []genai.Part{
		genai.Text(user.String()),
		&genai.Blob{MIMEType: util.PickMIME(img.MIME, img.Data), Data: img.Data},
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return slip.Record{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
			continue
		}
		txt := util.StripCodeFences(firstText(resp))
		if txt == "" {
			return slip.Record{}, fmt.Errorf("gemini extract: empty response")
		}
		var w wireRecord
		if err := json.Unmarshal([]byte(txt), &w); err != nil {
			return slip.Record{}, fmt.Errorf("gemini extract: bad JSON: %w", err)
		}
		return w.record(), nil
	}
	return slip.Record{}, fmt.Errorf("gemini extract: %w", lastErr)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
