package pgconn

import "github.com/riverstone/pgwire/pgproto3"

// Notice is a warning-level ErrorResponse-shaped message the server
// can send at any point; it never ends the current operation.
type Notice PgError

func (n *Notice) Error() string {
	return (*PgError)(n).Error()
}

func noticeFromProto(msg *pgproto3.NoticeResponse) *Notice {
	return (*Notice)(pgErrorFromFields(pgproto3.ErrorResponse(*msg)))
}

// Notification is one LISTEN/NOTIFY event.
type Notification struct {
	PID     uint32
	Channel string
	Payload string
}

func notificationFromProto(msg *pgproto3.NotificationResponse) *Notification {
	return &Notification{PID: msg.PID, Channel: msg.Channel, Payload: msg.Payload}
}
