package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/modelmux/modelmux/internal/app"
	"github.com/modelmux/modelmux/internal/config"
	pkgLogger "github.com/modelmux/modelmux/pkg/logger"
)

// resolveStringFlag returns the non-empty value, preferring short flag over long flag
func resolveStringFlag(shortVal, longVal string) string {
	if shortVal != "" {
		return shortVal
	}
	return longVal
}

func printUsage() {
	fmt.Println("modelmux - multi-provider LLM chat dispatcher")
	fmt.Println()
	fmt.Println("Models are declared in the settings file (.modelmux/settings.json or")
	fmt.Println("~/.modelmux/settings.yaml). API keys come from the environment")
	fmt.Println("(ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, ...).")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  modelmux                                  # Interactive mode")
	fmt.Println("  modelmux \"Explain Go channels\"            # One-shot mode")
	fmt.Println("  modelmux -m claude-sonnet \"Review this\"   # Pick a declared model")
	fmt.Println("  modelmux -t planning \"Where were we?\"     # Use a named topic")
	fmt.Println("  modelmux -v \"Debug this issue\"            # Verbose debug logging")
	fmt.Println()
}

func main() {
	ctx := context.Background()

	var model = flag.String("m", "", "Model name to use (must be declared in settings)")
	var modelLong = flag.String("model", "", "Model name to use (must be declared in settings)")
	var topic = flag.String("t", "", "Conversation topic (history namespace)")
	var topicLong = flag.String("topic", "", "Conversation topic (history namespace)")
	var settingsPath = flag.String("settings", "", "Path to settings file")
	var verbose = flag.Bool("v", false, "Enable verbose logging (debug level)")
	var verboseLong = flag.Bool("verbose", false, "Enable verbose logging (debug level)")
	var help = flag.Bool("h", false, "Show this help message")
	var helpLong = flag.Bool("help", false, "Show this help message")

	flag.Usage = func() {
		printUsage()
		fmt.Println("Flags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *help || *helpLong {
		flag.Usage()
		return
	}

	resolvedModel := resolveStringFlag(*model, *modelLong)
	resolvedTopic := resolveStringFlag(*topic, *topicLong)
	resolvedVerbose := *verbose || *verboseLong

	args := flag.Args()

	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		fmt.Printf("Warning: failed to load settings: %v\n", err)
		settings = config.GetDefaultSettings()
	}

	logLevel := settings.LogLevel
	if resolvedVerbose {
		logLevel = "debug"
	}
	pkgLogger.SetGlobalLogLevel(pkgLogger.LogLevel(logLevel))
	logger := pkgLogger.NewComponentLogger("main")

	if resolvedVerbose {
		logger.DebugWithIntention(pkgLogger.IntentionStatistics, "Verbose logging enabled", "log_level", logLevel)
	}

	a, err := app.New(settings)
	if err != nil {
		logger.Error("Startup failed", "error", err)
		os.Exit(1)
	}
	if resolvedModel != "" {
		if err := a.SetModel(resolvedModel); err != nil {
			logger.Error("Unknown model", "model", resolvedModel, "error", err)
			os.Exit(1)
		}
	}
	if resolvedTopic != "" {
		a.SetTopic(resolvedTopic)
	}

	if len(args) > 0 {
		userInput := strings.Join(args, " ")
		if err := a.RunOnce(ctx, userInput); err != nil {
			fmt.Printf("Command execution failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		// Piped input: read it all and treat it as a one-shot prompt.
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("Failed to read stdin", "error", err)
			os.Exit(1)
		}
		if strings.TrimSpace(string(input)) == "" {
			flag.Usage()
			os.Exit(1)
		}
		if err := a.RunOnce(ctx, string(input)); err != nil {
			fmt.Printf("Command execution failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := a.RunInteractive(ctx); err != nil {
		logger.Error("Interactive session failed", "error", err)
		os.Exit(1)
	}
}
