// Command tabula is a conversational data analyst for the terminal.
//
// Usage:
//
//	tabula register --user ann
//	tabula chat --user ann [--conversation ID]
//	tabula ask --user ann [--dataset sales.csv] "plot the sales distribution"
//	tabula conversations --user ann
//	tabula config show | set provider=azure base_url=https://... api_key=...
//	tabula doctor
//
// Settings come from tabula.toml (or --config) and TABULA_* variables,
// which may also be set in a .env file. TABULA_PASSWORD skips the password
// prompt and TABULA_API_KEY overrides the stored model credential.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
)

func main() {
	if err := loadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "tabula: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(defaultOptions())
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tabula: %v\n", err)
		os.Exit(1)
	}
}

// loadEnvFile adds variables from path to the environment. Variables that
// are already set win, and a missing file is ignored.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
