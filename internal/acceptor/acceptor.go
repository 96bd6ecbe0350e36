// Package acceptor owns the TCP listening socket the debug stub is
// reached through: accepting one client at a time, running its
// packet loop against a shared debugger control block, and returning
// to listening once the client disconnects.
package acceptor

import (
	"context"
	"net"
	"syscall"

	"github.com/flagbot/gbstub/internal/rsp"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Acceptor listens on a single TCP address and serves RSP clients
// one at a time against debugger.
type Acceptor struct {
	addr     string
	debugger *rsp.Debugger
	log      *zap.Logger
}

// New returns an Acceptor bound to addr (host:port, or :port for all
// interfaces) once Serve is called.
func New(addr string, debugger *rsp.Debugger, log *zap.Logger) *Acceptor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Acceptor{addr: addr, debugger: debugger, log: log}
}

// listenConfig sets SO_REUSEADDR on the listening socket so a
// restarted stub can rebind immediately instead of waiting out
// TIME_WAIT on the previous listener.
var listenConfig = net.ListenConfig{
	Control: func(network, address string, c syscall.RawConn) error {
		var ctrlErr error
		err := c.Control(func(fd uintptr) {
			ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		})
		if err != nil {
			return err
		}
		return ctrlErr
	},
}

// Serve listens on a.addr and accepts clients in a loop until ctx is
// canceled or the listener fails. Exactly one client is served at a
// time, matching the stub's single-debugger-session model; a second
// connection attempt waits until the first disconnects.
func (a *Acceptor) Serve(ctx context.Context) error {
	ln, err := listenConfig.Listen(ctx, "tcp", a.addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	a.log.Info("listening", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		a.serveClient(conn)
	}
}

// serveClient runs one client's packet loop to completion, halting
// the target on connect (so the client's first '?' sees a sensible
// stop reason). On disconnect the target is released to run free and
// the debugger's notify connection is cleared, since nothing is left
// to deliver an asynchronous stop reply to.
func (a *Acceptor) serveClient(netConn net.Conn) {
	log := a.log.With(zap.String("remote", netConn.RemoteAddr().String()))
	log.Info("client connected")
	defer func() {
		log.Info("client disconnected")
		a.debugger.Resume()
		a.debugger.Detach()
		netConn.Close()
	}()

	a.debugger.HaltOnAttach()

	conn := rsp.NewConnection(netConn, log)
	a.debugger.Attach(conn)
	dispatcher := rsp.NewDispatcher(a.debugger, log)

	for {
		payload, ok, interrupted := conn.Process()
		if interrupted {
			a.debugger.Interrupt()
		}
		if !ok {
			if err := conn.ReadInput(); err != nil {
				if !rsp.IsDisconnectError(err) {
					log.Debug("read failed", zap.Error(err))
				}
				return
			}
			continue
		}

		log.Debug("recv", zap.ByteString("payload", payload))
		if detach := dispatcher.Handle(conn, payload); detach {
			return
		}
		if conn.Errored() {
			return
		}
	}
}
