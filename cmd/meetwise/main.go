package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/meetwise/meetwise/internal/app"
	"github.com/meetwise/meetwise/internal/config"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	chatMode   = flag.Bool("chat", false, "Run in chat mode (one-shot or interactive)")
	message    = flag.String("m", "", "Message to process (chat mode)")
	trainPath  = flag.String("train", "", "Train patterns from a labeled example file")
	version    = "dev"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "help", "--help", "-h":
			printHelp()
			return
		case "version", "--version", "-v":
			fmt.Printf("meetwise version %s\n", version)
			return
		}
	}

	flag.Parse()

	config.LoadEnvFiles()

	application := initApp()

	if *trainPath != "" {
		application.RunTrain(*trainPath)
		return
	}

	if *chatMode || *message != "" {
		application.RunChat(*message)
		return
	}

	application.RunServer()
}

func initApp() *app.App {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting meetwise",
		zap.String("version", version),
		zap.String("mode", getMode()),
	)

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	application, err := app.New(cfg, logger, version)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}

	return application
}

func getMode() string {
	switch {
	case *trainPath != "":
		return "train"
	case *chatMode || *message != "":
		return "chat"
	default:
		return "server"
	}
}

func printHelp() {
	fmt.Println("meetwise - natural language meeting scheduler")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  meetwise                         Start the HTTP server")
	fmt.Println("  meetwise -chat                   Interactive chat")
	fmt.Println(`  meetwise -m "Meeting with John tomorrow at 3pm"`)
	fmt.Println("  meetwise -train examples.json    Mine patterns from labeled examples")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -config PATH   Config file (default: <data>/meetwise.yaml)")
	fmt.Println("  -data PATH     Data directory")
	fmt.Println()
	fmt.Println("Environment: MEETWISE_* variables override config keys,")
	fmt.Println("e.g. MEETWISE_SERVER_PORT, MEETWISE_GOOGLE_CLIENT_ID.")
}
