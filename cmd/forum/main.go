package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/nasermirzaei89/forum"
)

func main() {
	ctx := context.Background()

	forum.LoadEnv()
	slog.SetDefault(forum.NewLogger())

	app, err := forum.NewApp(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create app", "error", err)
		os.Exit(1)
	}

	err = app.Run(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to run app", "error", err)
		os.Exit(1)
	}
}
