// Package accept implements the accept loop: bind, wait for a readable
// listen socket with a bounded timeout, hand off a goroutine per
// accepted connection.
//
// Go has no portable select(2)/fork(2); the periodic "wait-readable,
// otherwise do nothing" poll around the listen socket is reproduced
// with SetDeadline+Accept, and a forked worker process becomes a
// spawned goroutine. Each worker goroutine recovers its own panics
// (internal/worker), so there is no child process to reap and no
// SIGCHLD handler to install.
package accept

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/jlee2404/sws/internal/netutil"
	"github.com/jlee2404/sws/internal/worker"
)

// pollInterval bounds how long Accept blocks before the loop checks
// the stop channel again.
const pollInterval = 5 * time.Second

// Serve binds address:port and runs the accept loop until stop is
// closed. It returns only on a bind/listen failure or once stop
// fires.
func Serve(address, port string, cfg worker.Config, stop <-chan struct{}) error {
	ln, err := netutil.Listen(address, port)
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		<-stop
		ln.Close()
	}()

	for {
		if err := ln.SetDeadline(time.Now().Add(pollInterval)); err != nil {
			return err
		}
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue // nothing readable within the poll interval
			}
			cfg.AppLog.Warn("accept error", zap.Error(err))
			continue
		}
		go worker.Handle(conn, cfg)
	}
}
