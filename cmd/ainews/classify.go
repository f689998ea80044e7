package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/pevans/ainews/classifier"
)

func handleClassify(a *app, args []string) int {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()

	runner, closeModel, err := a.classifierRunner(ctx)
	if err != nil {
		if errors.Is(err, classifier.ErrMissingAPIKey) {
			fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY is not set")
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeModel()

	result, err := runner.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: classification failed: %v\n", err)
		return 1
	}

	if result.Checked == 0 {
		fmt.Println("No unclassified articles.")
		return 0
	}

	fmt.Println("Classification completed:")
	fmt.Printf("  Checked: %d\n", result.Checked)
	fmt.Printf("  Classified: %d\n", result.Processed)
	fmt.Printf("  AI-related: %d\n", result.Related)
	if result.Deferred > 0 {
		fmt.Printf("  Deferred: %d (will be retried on the next run)\n", result.Deferred)
	}
	return 0
}
