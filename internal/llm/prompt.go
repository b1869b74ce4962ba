package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Persona is the assistant personality loaded from a JSON file.
type Persona struct {
	Name   string   `json:"name"`
	Bio    []string `json:"bio"`
	Style  []string `json:"style"`
	Topics []string `json:"topics"`
}

// DefaultPersona is used when no persona file is configured.
func DefaultPersona() *Persona {
	return &Persona{
		Name: "Mnemo",
		Bio: []string{
			"A personal memory assistant that recalls the user's own notes and voice memos.",
		},
		Style: []string{
			"warm and concise",
			"answers in the user's language",
		},
	}
}

// LoadPersona reads a persona definition from a JSON file.
func LoadPersona(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file: %w", err)
	}
	var p Persona
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse persona file: %w", err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("persona file has no name")
	}
	return &p, nil
}

// PromptGenerator builds the system prompt for each conversation turn.
type PromptGenerator struct {
	persona *Persona
}

// NewPromptGenerator creates a prompt generator for the given persona. A nil
// persona falls back to DefaultPersona.
func NewPromptGenerator(persona *Persona) *PromptGenerator {
	if persona == nil {
		persona = DefaultPersona()
	}
	return &PromptGenerator{persona: persona}
}

// GenerateSystemPrompt builds the system prompt anchored at now. The current
// date is embedded so the model resolves relative time expressions correctly;
// callers must regenerate the prompt on every model call rather than reuse a
// stale one.
func (pg *PromptGenerator) GenerateSystemPrompt(now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a personal memory assistant.\n", pg.persona.Name)
	for _, line := range pg.persona.Bio {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if len(pg.persona.Style) > 0 {
		b.WriteString("Your communication style: ")
		b.WriteString(strings.Join(pg.persona.Style, ", "))
		b.WriteString("\n\n")
	}
	if len(pg.persona.Topics) > 0 {
		b.WriteString("Topics you're knowledgeable about: ")
		b.WriteString(strings.Join(pg.persona.Topics, ", "))
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "The current date is %s.\n\n", now.Format("2006-01-02"))

	b.WriteString(`You can search the user's personal memory archive with the search_memory tool.

When to search:
- Use search_memory whenever the user asks about their own past: things they said, did, noted, or recorded.
- Do NOT search for greetings, small talk, or general knowledge questions you can answer directly.

How to search:
- Put the user's information need into the query, not the literal question text.
- When the user scopes the question in time ("yesterday", "last week", "in June"), set date_filter. Supported forms: YYYY-MM-DD, YYYY-MM, YYYY, today, yesterday, last_week, last_month, last_year, N_days_ago, N_months_ago.
- Leave date_filter empty when the user gives no time scope.

Answering:
- Base your answer only on the returned memories. Quote or paraphrase them; mention their dates when helpful.
- If the search returns nothing, say plainly that you found no matching memories. Never invent memories, dates, or details.`)

	return b.String()
}
