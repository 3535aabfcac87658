// Command yada is a chat assistant for developer chores that asks for
// confirmation before running tools which change the system.
//
// Usage:
//
//	yada                          Start an interactive chat
//	yada install python@3.12      Run one request and exit
//	yada -t <id> --checkpoint-db ~/.yada.db
//	                              Continue a saved thread
//	yada --config                 Edit API key, model and custom tools dir
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(defaultEnvironment()).ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}
