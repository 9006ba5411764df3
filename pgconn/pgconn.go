// Package pgconn implements a single, non-pooled connection to a
// PostgreSQL server: the wire-level connector, authentication, and the
// connection state machine that multiplexes simple and extended query
// protocol, COPY streaming, and asynchronous notifications over one
// socket.
package pgconn

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/riverstone/pgwire/internal/ctxwatch"
	"github.com/riverstone/pgwire/pgproto3"
	"github.com/riverstone/pgwire/tracelog"
)

type connStatus int32

const (
	connStatusUninitialized connStatus = iota
	connStatusIdle
	connStatusBusy
	connStatusClosed
)

// Conn is a single connection to a PostgreSQL server. It is not safe
// for concurrent use; a higher-level pool is expected to own it.
type Conn struct {
	conn     net.Conn
	frontend *pgproto3.Frontend

	config *Config

	status atomic.Int32

	network string
	address string

	pid        uint32
	secretKey  uint32
	txStatus   byte
	parameters map[string]string

	contextWatcher *ctxwatch.ContextWatcher
	cancelSent     atomic.Bool

	cleanupDone bool
}

// PID returns the backend process id reported in BackendKeyData.
func (c *Conn) PID() uint32 { return c.pid }

// SecretKey returns the cancellation secret reported in BackendKeyData.
func (c *Conn) SecretKey() uint32 { return c.secretKey }

// TxStatus returns the transaction status byte ('I', 'T', or 'E')
// from the most recent ReadyForQuery.
func (c *Conn) TxStatus() byte { return c.txStatus }

// ParameterStatus returns the last reported value of a run-time
// server parameter, or "" if it was never reported.
func (c *Conn) ParameterStatus(key string) string { return c.parameters[key] }

func (c *Conn) status_() connStatus {
	return connStatus(c.status.Load())
}

// IsClosed reports whether the connection has been closed, either
// explicitly or because the server terminated the session.
func (c *Conn) IsClosed() bool {
	return c.status_() == connStatusClosed
}

func (c *Conn) lock() error {
	switch c.status_() {
	case connStatusBusy:
		return &connLockError{status: "conn busy"} // nolint: goerr113
	case connStatusClosed:
		return &connLockError{status: "conn closed"}
	}
	c.status.Store(int32(connStatusBusy))
	c.cancelSent.Store(false)
	return nil
}

func (c *Conn) unlock() error {
	switch c.status_() {
	case connStatusBusy:
		c.status.Store(int32(connStatusIdle))
		return nil
	case connStatusClosed:
		return nil
	default:
		return fmt.Errorf("unlock: conn not busy (status %v)", c.status_())
	}
}

// Connect establishes a connection by trying each of config.Hosts in
// order. Authentication failures (SQLSTATEs 28000/28P01) abort
// immediately; any other failure advances to the next host.
func Connect(ctx context.Context, config *Config) (*Conn, error) {
	if len(config.Hosts) == 0 {
		return nil, &connectError{config: config, msg: "no hosts configured"}
	}
	if config.User == "" {
		return nil, &connectError{config: config, msg: "user is required"}
	}

	var firstErr error
	for _, hc := range config.Hosts {
		c, err := connectOne(ctx, config, hc)
		if err == nil {
			return c, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		var pgErr *PgError
		if e, ok := err.(*connectError); ok {
			if pe, ok := e.err.(*PgError); ok {
				pgErr = pe
			}
		}
		if pgErr != nil && (pgErr.Code == PgErrorInvalidAuthorizationSpecificationCode || pgErr.Code == PgErrorInvalidPasswordCode) {
			return nil, err
		}
	}
	return nil, firstErr
}

func connectOne(outerCtx context.Context, config *Config, hc *HostConfig) (c *Conn, err error) {
	ctx := outerCtx
	if config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(outerCtx, config.ConnectTimeout)
		defer cancel()
	}

	network, address := NetworkAddress(hc.Host, hc.Port)

	netConn, err := config.DialFunc(ctx, network, address)
	if err != nil {
		return nil, &connectError{config: config, msg: "dial error", err: err}
	}

	c = &Conn{
		conn:       netConn,
		config:     config,
		network:    network,
		address:    address,
		parameters: make(map[string]string),
	}
	c.status.Store(int32(connStatusIdle))
	c.contextWatcher = ctxwatch.NewContextWatcher(
		func() { c.handleCancelSignal() },
		func() {},
	)

	defer func() {
		if err != nil {
			netConn.Close()
		}
	}()

	if hc.TLSConfig != nil {
		if err = c.startTLS(hc.TLSConfig, hc.TLSRequired); err != nil {
			return nil, &connectError{config: config, msg: "tls error", err: err}
		}
	}

	minReadBufferSize := config.MinReadBufferSize
	if minReadBufferSize <= 0 {
		minReadBufferSize = defaultMinReadBufferSize
	}
	c.frontend = pgproto3.NewFrontend(c.conn, c.conn, minReadBufferSize)

	if err = c.startup(ctx, config, hc); err != nil {
		return nil, &connectError{config: config, msg: "startup error", err: err}
	}

	if err = c.authenticate(ctx, config.User, hc.Password); err != nil {
		return nil, &connectError{config: config, msg: "authentication error", err: err}
	}

	if err = c.ingestParams(ctx); err != nil {
		return nil, &connectError{config: config, msg: "parameter ingestion error", err: err}
	}

	if config.AfterConnect != nil {
		if err = config.AfterConnect(ctx, c); err != nil {
			c.conn.Close()
			c.status.Store(int32(connStatusClosed))
			return nil, &connectError{config: config, msg: "after connect error", err: err}
		}
	}

	if config.ValidateConnect != nil {
		if err = config.ValidateConnect(ctx, c); err != nil {
			c.conn.Close()
			c.status.Store(int32(connStatusClosed))
			return nil, &connectError{config: config, msg: "validate connect error", err: err}
		}
	}

	c.log(ctx, tracelog.LogLevelInfo, "connected", map[string]any{"host": hc.Host, "port": hc.Port, "database": config.Database})

	return c, nil
}

func (c *Conn) startTLS(tlsConfig *tls.Config, required bool) error {
	buf := (&pgproto3.SSLRequest{}).Encode(nil)

	if _, err := c.conn.Write(buf); err != nil {
		return err
	}

	// A throwaway Frontend just to read the single, unframed reply
	// byte through the same chunk reader the real connection will use
	// once it's built on the (possibly TLS-wrapped) conn below.
	sslReply := pgproto3.NewFrontend(c.conn, c.conn, 1)
	response, err := sslReply.ReceiveSSLReply()
	if err != nil {
		return err
	}
	if buffered := sslReply.ReadBufferLen(); buffered > 0 {
		return fmt.Errorf("unexpected %d bytes buffered after SSLRequest reply", buffered)
	}

	switch response {
	case 'S':
		c.conn = tls.Client(c.conn, tlsConfig)
		return nil
	case 'N':
		if required {
			return fmt.Errorf("server refused TLS connection")
		}
		return nil
	default:
		return fmt.Errorf("unexpected SSLRequest response byte %q", response)
	}
}

func (c *Conn) log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	if c.config.Logger == nil || c.config.LogLevel < level {
		return
	}
	c.config.Logger.Log(ctx, level, msg, data)
}

// receiveMessage reads the next backend message and applies the
// standard side effects (parameter status, tx status, notice and
// notification dispatch) before returning it.
func (c *Conn) receiveMessage(ctx context.Context) (pgproto3.BackendMessage, error) {
	if ctx != context.Background() {
		c.contextWatcher.Watch(ctx)
		defer c.contextWatcher.Unwatch()
	}

	msg, err := c.frontend.Receive()
	if err != nil {
		c.asyncClose()
		return nil, &pgconnError{msg: "receive message failed", err: normalizeTimeoutError(ctx, err)}
	}

	switch m := msg.(type) {
	case *pgproto3.ParameterStatus:
		c.parameters[m.Name] = m.Value
	case *pgproto3.ReadyForQuery:
		c.txStatus = m.TxStatus
	case *pgproto3.NoticeResponse:
		if c.config.OnNotice != nil {
			c.config.OnNotice(c, noticeFromProto(m))
		}
	case *pgproto3.NotificationResponse:
		if c.config.OnNotification != nil {
			c.config.OnNotification(c, notificationFromProto(m))
		}
	case *pgproto3.ErrorResponse:
		pgErr := errorResponseToPgError(m)
		if isFatal(pgErr.Severity) {
			c.asyncClose()
		}
		return msg, pgErr
	}

	return msg, nil
}

func (c *Conn) flush(ctx context.Context) error {
	if ctx != context.Background() {
		c.contextWatcher.Watch(ctx)
		defer c.contextWatcher.Unwatch()
	}

	if err := c.frontend.Flush(); err != nil {
		c.asyncClose()
		return &pgconnError{msg: "flush failed", err: normalizeTimeoutError(ctx, err)}
	}
	return nil
}

// restoreConnectionState drains messages until ReadyForQuery. Non-fatal
// PgErrors are absorbed; a fatal PgError or transport error leaves the
// connection closed and stops the drain. Per spec this drain is not
// cancellable: it always uses a context no caller's cancellation can
// shorten, so a cancelled operation still resynchronizes the wire for
// whoever locks the connection next.
func (c *Conn) restoreConnectionState() error {
	ctx := context.Background()
	for {
		msg, err := c.receiveMessage(ctx)
		if err != nil {
			if pgErr, ok := err.(*PgError); ok {
				if isFatal(pgErr.Severity) {
					return nil
				}
				continue
			}
			return err
		}
		if _, ok := msg.(*pgproto3.ReadyForQuery); ok {
			return nil
		}
	}
}

// handleCancelSignal is the ContextWatcher's onCancel callback: the
// one-shot handler spec.md's cancellation model calls for. It fires
// cancelRequest on a secondary socket and nothing else — the blocked
// Receive/Flush on the primary socket keeps waiting for the server's
// real reply, which normally arrives as a PgError with SQLSTATE
// 57014 followed by ReadyForQuery. cancelSent guards against firing
// more than once per locked operation; lock() resets it.
func (c *Conn) handleCancelSignal() {
	if !c.cancelSent.CompareAndSwap(false, true) {
		return
	}
	go func() {
		timeout := c.config.ConnectTimeout
		if timeout <= 0 {
			timeout = defaultConnectTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		c.cancelRequest(ctx)
	}()
}

// checkCanceled reports whether ctx is already done, without touching
// the wire. Every public data operation calls this before acquiring
// the lock so a pre-cancelled call raises immediately rather than
// sending anything.
func checkCanceled(ctx context.Context) error {
	if ctx == context.Background() {
		return nil
	}
	select {
	case <-ctx.Done():
		return newContextAlreadyDoneError(ctx)
	default:
		return nil
	}
}

func (c *Conn) asyncClose() {
	if c.status_() == connStatusClosed {
		return
	}
	c.status.Store(int32(connStatusClosed))
	c.conn.Close()
}

// Close sends a best-effort Terminate and releases the socket. It is
// idempotent; subsequent calls are no-ops.
func (c *Conn) Close(ctx context.Context) error {
	if c.status_() == connStatusClosed {
		return nil
	}
	c.status.Store(int32(connStatusClosed))

	if dl, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(dl)
	}

	c.frontend.Send(&pgproto3.Terminate{})
	_ = c.frontend.Flush()

	return c.conn.Close()
}
