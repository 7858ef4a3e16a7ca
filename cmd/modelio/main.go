// Package main is the modelio command-line tool: list resources, export them
// to CSV or XLSX files, import files back, and migrate the sample schema.
//
// Configuration comes from the same environment variables as the API server
// (DATABASE_URL, DB_DRIVER, CATALOG_PATH, ...). A .env file in the working
// directory is loaded first.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Overload()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
