package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/commands"
)

func main() {
	cmd := commands.New()

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "tusk: "+err.Error())
		os.Exit(apperr.ExitCode(err))
	}
}
