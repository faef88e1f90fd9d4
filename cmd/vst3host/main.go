// Command vst3host scans for VST3 plugins, lists the classes of a module and
// probes plugin instances.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand(newApp(os.Stderr)).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
