// Command sws is a minimal static-file and CGI HTTP/1.0 server.
//
// Flags: -d enables debug logging and sends the access log to stdout
// (sws never daemonizes, with or without -d), -h prints usage, -c sets the CGI
// script directory, -i the bind address, -l the access log path, -p
// the port. The positional argument is the document root.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jlee2404/sws/internal/accept"
	"github.com/jlee2404/sws/internal/accesslog"
	"github.com/jlee2404/sws/internal/applog"
	"github.com/jlee2404/sws/internal/worker"
)

const usageText = "usage: sws [-dh] [-c dir] [-i address] [-l file] [-p port] dir\n"

func usage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sws", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = usage

	debug := fs.Bool("d", false, "debug: verbose logging, access log to stdout")
	help := fs.Bool("h", false, "print usage")
	cgidir := fs.String("c", "", "directory of executable CGI scripts, routed under /cgi-bin")
	address := fs.String("i", "", "address to bind (default: wildcard, dual-stack)")
	logfile := fs.String("l", "", "access log file (default: stdout)")
	port := fs.String("p", "8080", "port to bind")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		usage()
		return 0
	}
	if fs.NArg() != 1 {
		usage()
		return 2
	}
	docroot := fs.Arg(0)

	appLog, err := applog.New(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sws: logger: %v\n", err)
		return 1
	}
	defer appLog.Sync()

	if fi, statErr := os.Stat(docroot); statErr != nil || !fi.IsDir() {
		appLog.Error("document root is not a directory", zap.String("docroot", docroot))
		return 1
	}
	if *cgidir != "" {
		if fi, statErr := os.Stat(*cgidir); statErr != nil || !fi.IsDir() {
			appLog.Error("cgi directory is not a directory", zap.String("cgidir", *cgidir))
			return 1
		}
	}

	accessLog, err := accesslog.Open(*logfile, *debug)
	if err != nil {
		appLog.Error("opening access log", zap.Error(err))
		return 1
	}
	defer accessLog.Close()

	// Go has no portable daemon(3) equivalent, and re-execing under a
	// detached setsid session is exactly the kind of process-supervision
	// concern idiomatic Go tooling delegates to its environment: systemd,
	// runit, or a container. sws always runs in the foreground; -d only
	// changes log verbosity and destination, never tty detachment.

	cfg := worker.Config{
		DocRoot:   docroot,
		CGIDir:    *cgidir,
		AccessLog: accessLog,
		AppLog:    appLog,
	}

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	appLog.Info("starting sws",
		zap.String("docroot", docroot),
		zap.String("address", *address),
		zap.String("port", *port),
		zap.String("cgidir", *cgidir),
	)

	if err := accept.Serve(*address, *port, cfg, stop); err != nil {
		appLog.Error("server exited", zap.Error(err))
		return 1
	}
	return 0
}
