package main

import (
	"context"
	"fmt"
	"os"

	"trend-processor/bootstrap"
)

func main() {
	ctx := context.Background()

	if err := bootstrap.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "trend-processor failed: %v\n", err)
		os.Exit(1)
	}
}
