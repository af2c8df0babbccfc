package scribble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"squadchat/internal/logging"
)

// gridPrompt asks the model to compose a drawing as canvas commands on a
// fixed coordinate system. Temperature stays very low; we want geometry,
// not prose.
const gridPrompt = `You are drawing "%[1]s" for a Pictionary game. Canvas = 520x380 pixels.
I will give you a coordinate system. Output ONLY a JSON array of drawing commands - nothing else.

COMMAND TYPES:
Line:    {"t":"l","x1":X,"y1":Y,"x2":X,"y2":Y,"c":"#RRGGBB","w":W}
Circle:  {"t":"c","x":X,"y":Y,"r":R,"c":"#RRGGBB","w":W}          hollow
FilledC: {"t":"c","x":X,"y":Y,"r":R,"c":"#RRGGBB","w":W,"fill":"#RRGGBB"}
Rect:    {"t":"r","x":X,"y":Y,"w":W2,"h":H,"c":"#RRGGBB","w":W}   x,y=top-left
FilledR: {"t":"r","x":X,"y":Y,"w":W2,"h":H,"c":"#RRGGBB","w":W,"fill":"#RRGGBB"}
Arc:     {"t":"a","x":X,"y":Y,"r":R,"s":S,"e":E,"c":"#RRGGBB","w":W}  s/e radians
Poly:    {"t":"p","pts":[[x,y],[x,y],...],"c":"#RRGGBB","w":W}
FilledP: {"t":"p","pts":[[x,y],...],"c":"#RRGGBB","w":W,"close":true,"fill":"#RRGGBB"}

Canvas center: (260,190). Keep within 30px margins. Use 20-35 commands.

STEP 1 - Think what "%[1]s" looks like (structure/parts):
STEP 2 - List each major shape needed top-to-bottom:
STEP 3 - Output JSON array

Draw "%[1]s" now.`

const maxLLMCommands = 40

// Generator produces drawings for AI turns with a tiered strategy: real
// human strokes from the dataset first, a model-composed drawing second,
// a question-mark placeholder last.
type Generator struct {
	fetcher  *Fetcher
	llmURL   string
	llmModel string
	apiKey   string
	http     *http.Client
	rand     *rand.Rand
}

// NewGenerator creates a generator. An empty apiKey disables the model
// fallback tier (hardcoded drawings still work).
func NewGenerator(fetcher *Fetcher, llmURL, llmModel, apiKey string) *Generator {
	return &Generator{
		fetcher:  fetcher,
		llmURL:   llmURL,
		llmModel: llmModel,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// PickWord returns a random round word from the bank.
func (g *Generator) PickWord() string {
	return wordBank[g.rand.Intn(len(wordBank))]
}

// Generate returns drawing commands for word plus the source tier that
// produced them: "quickdraw", "llm" or "fallback". Never returns an empty
// drawing.
func (g *Generator) Generate(ctx context.Context, word string) ([]Command, string) {
	strokes, err := g.fetcher.Strokes(ctx, word)
	if err == nil && len(strokes) > 0 {
		return strokes, "quickdraw"
	}
	if err != nil {
		logging.Debug("scribble", "dataset tier failed for %q: %v", word, err)
	}

	if strokes := g.llmDraw(ctx, word); len(strokes) > 0 {
		return strokes, "llm"
	}

	logging.Info("scribble", "all drawing tiers failed for %q, using placeholder", word)
	return questionMark(), "fallback"
}

// llmDraw composes a drawing with the text model. Hardcoded programs win
// over a model call.
func (g *Generator) llmDraw(ctx context.Context, word string) []Command {
	if cmds, ok := hardcodedDrawings[strings.ToLower(word)]; ok {
		return cmds
	}
	if g.apiKey == "" {
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"model":       g.llmModel,
		"messages":    []map[string]string{{"role": "user", "content": fmt.Sprintf(gridPrompt, word)}},
		"temperature": 0.2,
		"max_tokens":  2000,
	})
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.llmURL, bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		logging.Debug("scribble", "llm draw request failed: %v", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || len(parsed.Choices) == 0 {
		return nil
	}

	return ParseCommands(parsed.Choices[0].Message.Content)
}

// ParseCommands extracts the first JSON array from model output and keeps
// the entries that look like drawing commands, capped at maxLLMCommands.
func ParseCommands(raw string) []Command {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end <= start {
		return nil
	}
	var cmds []Command
	if err := json.Unmarshal([]byte(raw[start:end+1]), &cmds); err != nil {
		return nil
	}
	valid := make([]Command, 0, len(cmds))
	for _, c := range cmds {
		if t, ok := c["t"].(string); ok && t != "" {
			valid = append(valid, c)
		}
		if len(valid) == maxLLMCommands {
			break
		}
	}
	return valid
}
