// Magnet finds magnet links for video codes. It searches torrent indexes,
// ranks the candidates and prints one magnet line per pick on stdout, so the
// output can be piped into a download client. Logs go to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, cc := newRootCommand()
	err := execute(ctx, cmd, cc)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
