// Command orma generates dialect SQL and runs bulk table operations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/syssam/orma/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "orma:", err)
		stop()
		os.Exit(1)
	}
}
