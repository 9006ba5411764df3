package pgconn

import "context"

// WaitForNotification blocks until a NotificationResponse arrives from
// a channel the session is LISTENing on, or an error other than a
// PgError occurs. A ctx that is already done fails immediately; a ctx
// that becomes done during the wait only sends a cancel request, and
// the wait goes on. The connection stays locked (busy) for the whole
// wait, so no other operation can run on it meanwhile.
func (c *Conn) WaitForNotification(ctx context.Context) (*Notification, error) {
	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}
	if err := c.lock(); err != nil {
		return nil, err
	}
	defer c.unlock()

	var notification *Notification
	orig := c.config.OnNotification
	c.config.OnNotification = func(conn *Conn, n *Notification) {
		notification = n
		if orig != nil {
			orig(conn, n)
		}
	}
	defer func() { c.config.OnNotification = orig }()

	for notification == nil {
		if _, err := c.receiveMessage(ctx); err != nil {
			if _, ok := err.(*PgError); !ok {
				return nil, err
			}
		}
	}

	return notification, nil
}
