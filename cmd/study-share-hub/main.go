package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/EgorLis/study-share-hub/internal/app"
)

// @title                       Study Share Hub API
// @version                     1.0
// @description                 Обмен решёнными ворксшитами: каталог, загрузка, скачивание, права на загрузку.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return a.Run(ctx)
}
