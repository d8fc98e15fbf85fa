package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsnap/internal/company"
	"github.com/sells-group/leadsnap/pkg/anthropic"
)

// ErrNoCompany reports that the model could not identify a business in the
// OCR text. It is terminal for the photo: retrying the same pixels will not
// produce a name.
var ErrNoCompany = eris.New("extract: no company identified")

// extractionMaxTokens bounds the answer; a single candidate object is small.
const extractionMaxTokens = 1024

const extractionSystemText = "You are a data entry specialist extracting business details from text captured off work vehicles. Return valid JSON matching the requested schema. Use empty strings or empty arrays for anything not present in the text; never guess or invent values."

const extractionPrompt = `The following text was read from a photo of a company vehicle (door decal,
truck wrap, trailer lettering, or yard sign). It may contain OCR noise,
partial words, and unrelated fragments such as license plates, slogans, or
traffic signs.

OCR text:
%s

Identify the business being advertised. Return a valid JSON object:
{"name": "<business name>", "industry": ["<trade or service offered>"], "email": "<email address>", "phone": "<phone number>", "city": "<city>", "state": "<two-letter state code>", "website": "<domain or url>"}

Rules:
- name is the business name exactly as painted, including any legal suffix.
- industry lists the trades the vehicle advertises (plumbing, roofing, hvac, ...).
- Use "" for any field the text does not contain and [] when no trade is named.
- Only return values the text supports.`

// Parser turns OCR text into a dedup candidate using a fixed extraction
// prompt.
type Parser struct {
	ai    anthropic.Client
	model string
}

// NewParser creates a Parser bound to a model.
func NewParser(ai anthropic.Client, model string) *Parser {
	return &Parser{ai: ai, model: model}
}

// Parse sends the OCR text to the model and decodes the candidate it
// returns. Returns ErrNoCompany when the text names no business.
func (p *Parser) Parse(ctx context.Context, ocrText string) (company.Candidate, error) {
	ocrText = strings.TrimSpace(ocrText)
	if ocrText == "" {
		return company.Candidate{}, ErrNoCompany
	}

	resp, err := p.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: extractionMaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(extractionSystemText),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(extractionPrompt, ocrText)},
		},
	})
	if err != nil {
		return company.Candidate{}, eris.Wrap(err, "extract: create message")
	}
	resp.Usage.LogCost(p.model, "extract")

	text := extractText(resp)
	var cand company.Candidate
	if err := json.Unmarshal([]byte(cleanJSON(text)), &cand); err != nil {
		snippet := text
		if len(snippet) > 120 {
			snippet = snippet[:120]
		}
		return company.Candidate{}, eris.Wrapf(err, "extract: parse answer %q", snippet)
	}

	cand.Name = strings.TrimSpace(cand.Name)
	if cand.Name == "" {
		return company.Candidate{}, ErrNoCompany
	}
	return cand, nil
}

// extractText concatenates all text content blocks.
func extractText(resp *anthropic.MessageResponse) string {
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// cleanJSON strips markdown fences and leading/trailing prose around the
// JSON object a model returns.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	text = strings.TrimSpace(text)

	// Attempt to repair truncated JSON (unclosed brackets/braces).
	return repairTruncatedJSON(text)
}

// repairTruncatedJSON closes any unclosed brackets or braces in truncated JSON.
func repairTruncatedJSON(text string) string {
	if len(text) == 0 {
		return text
	}

	var stack []byte
	inString := false
	escape := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escape = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				stack = append(stack, c)
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		text += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			text += "}"
		} else {
			text += "]"
		}
	}
	return text
}
