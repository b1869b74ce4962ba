package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/quietlake/mnemo/internal/agent"
	"github.com/quietlake/mnemo/internal/api"
	"github.com/quietlake/mnemo/internal/auth"
	"github.com/quietlake/mnemo/internal/embed"
	"github.com/quietlake/mnemo/internal/index"
	"github.com/quietlake/mnemo/internal/llm"
	"github.com/quietlake/mnemo/internal/logger"
	"github.com/quietlake/mnemo/internal/retriever"
	"github.com/quietlake/mnemo/internal/telegram"
	"github.com/quietlake/mnemo/internal/tools"
)

// Config represents the application configuration.
type Config struct {
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	EmbeddingCache   int

	ChatBaseURL string
	ChatAPIKey  string
	ChatModel   string

	IndexPath    string
	MetadataPath string

	HTTPPort      string
	TelegramToken string

	AdminUserIDs   string
	AllowedUserIDs string
	PersonaFile    string
}

// loadConfig loads configuration from environment variables.
func loadConfig() *Config {
	cacheSize := embed.DefaultCacheSize
	if v := os.Getenv("EMBEDDING_CACHE_SIZE"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &cacheSize); err != nil {
			logger.Warn("Invalid EMBEDDING_CACHE_SIZE %q, using default %d", v, embed.DefaultCacheSize)
			cacheSize = embed.DefaultCacheSize
		}
	}

	return &Config{
		EmbeddingBaseURL: getEnvWithDefault("EMBEDDING_BASE_URL", "https://api.openai.com"),
		EmbeddingAPIKey:  os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingModel:   getEnvWithDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingCache:   cacheSize,

		ChatBaseURL: getEnvWithDefault("CHAT_BASE_URL", "https://openrouter.ai/api"),
		ChatAPIKey:  os.Getenv("CHAT_API_KEY"),
		ChatModel:   getEnvWithDefault("CHAT_MODEL", "meta-llama/llama-3-70b-instruct"),

		IndexPath:    getEnvWithDefault("INDEX_PATH", "data/memories.vec"),
		MetadataPath: getEnvWithDefault("METADATA_PATH", "data/memories.db"),

		HTTPPort:      getEnvWithDefault("HTTP_PORT", "8080"),
		TelegramToken: os.Getenv("TG_BOT_TOKEN"),

		AdminUserIDs:   os.Getenv("ADMIN_USER_IDS"),
		AllowedUserIDs: os.Getenv("ALLOWED_USER_IDS"),
		PersonaFile:    os.Getenv("PERSONA_FILE"),
	}
}

// getEnvWithDefault gets an environment variable or returns a default value.
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	personaFile := flag.String("persona", "", "Path to persona.json file")
	repl := flag.Bool("repl", false, "Run an interactive terminal session instead of the servers")
	flag.Parse()

	logger.Init(*debug)
	logger.Info("Starting mnemo...")

	if err := godotenv.Load(); err != nil {
		logger.Info("Warning: No .env file found or error loading it")
	}

	config := loadConfig()
	if *personaFile != "" {
		config.PersonaFile = *personaFile
	}

	if logger.IsDebugEnabled() {
		logger.Debug("Configuration loaded: EmbeddingModel=%s, ChatModel=%s, IndexPath=%s, MetadataPath=%s, Telegram=%v",
			config.EmbeddingModel, config.ChatModel, config.IndexPath, config.MetadataPath, config.TelegramToken != "")
	}

	// The index is loaded before anything else: a broken or inconsistent
	// index must stop the process, not surface later as bad answers.
	idx, err := index.Load(config.IndexPath, config.MetadataPath)
	if err != nil {
		logger.Error("Failed to load index: %v", err)
		os.Exit(1)
	}

	embedClient, err := embed.NewClient(config.EmbeddingBaseURL, config.EmbeddingAPIKey, config.EmbeddingModel, config.EmbeddingCache)
	if err != nil {
		logger.Error("Failed to create embedding client: %v", err)
		os.Exit(1)
	}

	ret := retriever.New(embedClient, idx)
	toolRouter := tools.NewToolRouter(ret)

	persona := llm.DefaultPersona()
	if config.PersonaFile != "" {
		persona, err = llm.LoadPersona(config.PersonaFile)
		if err != nil {
			logger.Error("Failed to load persona: %v", err)
			os.Exit(1)
		}
		logger.Info("Persona loaded: %s", persona.Name)
	}

	chatService := llm.NewOpenAIService(config.ChatBaseURL, config.ChatAPIKey, config.ChatModel)
	orchestrator := agent.New(chatService, toolRouter, llm.NewPromptGenerator(persona))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *repl {
		runREPL(ctx, orchestrator)
		return
	}

	if config.TelegramToken != "" {
		policy := auth.NewPolicyService(config.AdminUserIDs, config.AllowedUserIDs)
		tgBot, err := telegram.NewBot(config.TelegramToken, orchestrator, policy)
		if err != nil {
			logger.Error("Failed to create Telegram bot: %v", err)
			os.Exit(1)
		}
		go tgBot.Start(ctx)
	}

	server := api.NewServer(orchestrator, ret, embedClient, config.HTTPPort)
	if err := server.Serve(ctx); err != nil {
		logger.Error("HTTP server failed: %v", err)
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}

// runREPL reads user messages from stdin and prints the assistant's answers.
func runREPL(ctx context.Context, orchestrator *agent.Orchestrator) {
	const sessionID = "repl"

	fmt.Println("mnemo interactive session. Type 'quit' to exit, 'clear' to reset the conversation.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "quit", "exit":
			return
		case "clear":
			orchestrator.Reset(sessionID)
			fmt.Println("Conversation history cleared.")
			continue
		}

		answer, err := orchestrator.Converse(ctx, sessionID, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Println(answer)
	}
}
