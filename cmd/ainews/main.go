package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	subcommand := os.Args[1]
	args := os.Args[2:]

	switch subcommand {
	case "help", "--help", "-h":
		printUsage()
		return
	case "fetch", "classify", "list", "export", "sources", "serve":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var code int
	switch subcommand {
	case "fetch":
		code = handleFetch(a, args)
	case "classify":
		code = handleClassify(a, args)
	case "list":
		code = handleList(a, args)
	case "export":
		code = handleExport(a, args)
	case "sources":
		code = handleSources(a, args)
	case "serve":
		code = handleServe(a, args)
	}

	a.Close()
	os.Exit(code)
}

func printUsage() {
	fmt.Println("ainews - AI news article extractor")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ainews <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  fetch      Fetch articles published on a date from one or all sources")
	fmt.Println("  classify   Classify unchecked articles as AI-related or not")
	fmt.Println("  list       List stored articles")
	fmt.Println("  export     Export AI-related articles to a PDF report")
	fmt.Println("  sources    List configured sources")
	fmt.Println("  serve      Run the HTTP API")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  AINEWS_CONFIG     Path to config file (default: ~/.ainews/config.yaml)")
	fmt.Println("  AINEWS_DB_DRIVER  Storage driver: sqlite3 or postgres")
	fmt.Println("  AINEWS_DB_DSN     Storage DSN")
	fmt.Println("  AINEWS_LOG_LEVEL  Log level: debug, info, warn, error")
	fmt.Println("  GEMINI_API_KEY    Gemini API key, required by classify")
}
