package pgconn

import (
	"context"

	"github.com/riverstone/pgwire/pgproto3"
)

// cancelRequest asks the server to cancel whatever the connection is
// currently executing. It opens a second, short-lived connection to
// the same address and sends a CancelRequest; per protocol the server
// never replies, so success is not observable here. Errors dialing or
// writing the side channel are returned; both callers ignore them,
// since cancellation is always best-effort.
func (c *Conn) cancelRequest(ctx context.Context) error {
	cancelConn, err := c.config.DialFunc(ctx, c.network, c.address)
	if err != nil {
		return err
	}
	defer cancelConn.Close()

	if dl, ok := ctx.Deadline(); ok {
		cancelConn.SetDeadline(dl)
	}

	buf := (&pgproto3.CancelRequest{ProcessID: c.pid, SecretKey: c.secretKey}).Encode(nil)
	if _, err := cancelConn.Write(buf); err != nil {
		return err
	}

	// The server closes the connection without replying; read until
	// EOF (or error) just to observe that close rather than racing it.
	discard := make([]byte, 1)
	cancelConn.Read(discard)

	return nil
}
