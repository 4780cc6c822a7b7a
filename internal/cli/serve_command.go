package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"ytdl-remote/internal/config"
	"ytdl-remote/internal/logging"
	"ytdl-remote/internal/mockserver"
)

func runServeMock(args []string) error {
	fs := flag.NewFlagSet("serve-mock", flag.ContinueOnError)
	addr := fs.String("addr", mockserver.DefaultAddr, "listen address")
	step := fs.Float64("step", mockserver.DefaultStep, "progress added per status query")
	dir := fs.String("dir", "", "directory for generated files (default: temporary)")
	level := fs.String("log-level", config.DefaultLogLevel, "log level")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logging.Stderr(*level)
	srv, err := mockserver.New(mockserver.Options{
		Step:   *step,
		Dir:    *dir,
		Logger: logrus.NewEntry(log),
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("mock backend listening on %s (files in %s)\n", *addr, srv.Dir())
	fmt.Printf("urls containing %q produce a failing job\n", mockserver.FailMarker)
	return srv.ListenAndServe(ctx, *addr)
}
