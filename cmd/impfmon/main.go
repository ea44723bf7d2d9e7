package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"impfmon/cmd/impfmon/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commands.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
