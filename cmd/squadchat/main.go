package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"squadchat/internal/classify"
	"squadchat/internal/hub"
	"squadchat/internal/persona"
	"squadchat/internal/provider"
	"squadchat/internal/room"
	"squadchat/internal/scribble"
	"squadchat/internal/server"
	"squadchat/internal/trigger"
)

const (
	groqURL       = "https://api.groq.com/openai/v1/chat/completions"
	groqModel     = "llama-3.3-70b-versatile"
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	visionModel   = "meta-llama/llama-3.2-11b-vision-instruct"
)

func main() {
	log.Println("squadchat - group chat with an AI squad")
	log.Println("=======================================")

	// Load .env file (optional - won't error if missing)
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, using environment variables")
	} else {
		log.Println("[config] Loaded .env file")
	}

	groqKey := os.Getenv("GROQ_API_KEY")
	openRouterKey := os.Getenv("OPENROUTER_API_KEY")
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	if groqKey == "" {
		log.Println("[config] GROQ_API_KEY not set; the leader persona stays silent")
	}
	if openRouterKey == "" {
		log.Println("[config] OPENROUTER_API_KEY not set; the reactive persona and vision stay silent")
	}

	personas := persona.Defaults()
	if path := os.Getenv("PERSONA_TUNING"); path != "" {
		var err error
		if personas, err = persona.LoadTuning(path); err != nil {
			log.Printf("Warning: %v", err)
		} else {
			log.Printf("[config] Loaded persona tuning from %s", path)
		}
	}

	log.Printf("[config] Personas: %s", strings.Join(persona.Names(personas), ", "))

	keywords := classify.DefaultKeywords()
	if path := os.Getenv("KEYWORD_TUNING"); path != "" {
		var err error
		if keywords, err = classify.LoadKeywords(path); err != nil {
			log.Printf("Warning: %v", err)
		} else {
			log.Printf("[config] Loaded keyword tuning from %s", path)
		}
	}

	openRouterHeaders := map[string]string{
		"HTTP-Referer": "https://render.com",
		"X-Title":      "SquadChat",
	}

	completers := map[string]provider.Completer{
		personas[0].Name: provider.NewOpenAIClient("groq", groqKey, 25*time.Second,
			provider.Backend{URL: groqURL, Model: groqModel, Temperature: 0.75},
		),
		personas[1].Name: provider.NewOpenAIClient("openrouter", openRouterKey, 18*time.Second,
			provider.Backend{URL: openRouterURL, Model: "x-ai/grok-3-mini", Temperature: 0.9, Headers: openRouterHeaders},
			provider.Backend{URL: openRouterURL, Model: "meta-llama/llama-3-8b-instruct:free", Temperature: 0.9, Headers: openRouterHeaders},
		),
	}

	vision := provider.NewVisionClient(openRouterURL, visionModel, openRouterKey, openRouterHeaders, 25*time.Second)

	h := hub.NewHub()
	registry := room.NewRegistry()

	notify := func(roomKey string, t room.Turn) {
		h.Broadcast(roomKey, hub.NewMessage(roomKey, t.Sender, t.Body))
	}

	engine := trigger.New(trigger.Config{
		PersonaMinInterval: envDuration("BOT_MIN_INTERVAL", 0),
		GlobalCooldown:     envDuration("BOT_GLOBAL_COOLDOWN", 0),
	}, personas, completers, notify)

	fetcher := scribble.NewFetcher(os.Getenv("QUICKDRAW_URL"), 12*time.Second)
	generator := scribble.NewGenerator(fetcher, groqURL, groqModel, groqKey)
	director := scribble.NewDirector(generator, vision, personas[0].Name, personas[1].Name,
		func(roomKey, sender, body string) {
			h.Broadcast(roomKey, hub.NewMessage(roomKey, sender, body))
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.New(ctx, h, registry, classify.NewWithKeywords(keywords), engine, director, vision)
	httpSrv := &http.Server{Addr: ":" + port, Handler: srv.Routes()}

	go func() {
		log.Printf("[main] Listening on :%s", port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("[main] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: shutdown: %v", err)
	}

	log.Println("[main] Goodbye!")
}

// envDuration parses an env var like "10s"; fallback on missing or bad input.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: bad %s=%q, using default", key, v)
		return fallback
	}
	return d
}
