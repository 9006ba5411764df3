package pgproto3

import (
	"encoding/binary"
	"io"
)

// Frontend is a client for the PostgreSQL wire protocol, version 3. It
// owns the read-side chunk buffer and the write-side staging buffer;
// callers drive it with Send*/Flush to write and Receive to read. A
// Frontend is not safe for concurrent use.
type Frontend struct {
	cr *chunkReader
	w  io.Writer

	wbuf []byte

	// Backend message flyweights. Receive always decodes into one of
	// these rather than allocating, since the returned message is only
	// valid until the next call to Receive.
	authenticationOk                AuthenticationOk
	authenticationCleartextPassword AuthenticationCleartextPassword
	authenticationMD5Password       AuthenticationMD5Password
	authenticationSASL              AuthenticationSASL
	authenticationSASLContinue      AuthenticationSASLContinue
	authenticationSASLFinal         AuthenticationSASLFinal
	backendKeyData                  BackendKeyData
	bindComplete                    BindComplete
	closeComplete                   CloseComplete
	commandComplete                 CommandComplete
	copyData                        CopyData
	copyDone                        CopyDone
	copyInResponse                  CopyInResponse
	copyOutResponse                 CopyOutResponse
	dataRow                         DataRow
	emptyQueryResponse              EmptyQueryResponse
	errorResponse                   ErrorResponse
	noData                          NoData
	noticeResponse                  NoticeResponse
	notificationResponse            NotificationResponse
	parameterDescription            ParameterDescription
	parameterStatus                 ParameterStatus
	parseComplete                   ParseComplete
	portalSuspended                 PortalSuspended
	readyForQuery                   ReadyForQuery
	rowDescription                  RowDescription

	bodyLen    int
	msgType    byte
	partialMsg bool
	authType   uint32
}

// NewFrontend creates a new Frontend reading from r and writing to w.
// minReadBufferSize, if > 0, sets the size of the internal read
// buffer; otherwise it defaults to 8192 bytes.
func NewFrontend(r io.Reader, w io.Writer, minReadBufferSize int) *Frontend {
	return &Frontend{cr: newChunkReader(r, minReadBufferSize), w: w}
}

// Send stages msg to be written to the server. It is not guaranteed to
// be on the wire until Flush is called.
func (f *Frontend) Send(msg FrontendMessage) {
	f.wbuf = msg.Encode(f.wbuf)
}

// Flush writes all staged messages to the server.
func (f *Frontend) Flush() error {
	if len(f.wbuf) == 0 {
		return nil
	}

	_, err := f.w.Write(f.wbuf)

	const maxRetainedLen = 1024
	if len(f.wbuf) > maxRetainedLen {
		f.wbuf = make([]byte, 0, maxRetainedLen)
	} else {
		f.wbuf = f.wbuf[:0]
	}

	return err
}

// SendUnbuffered flushes any pending staged messages and then writes
// msg directly, bypassing the staging buffer. Used for CopyData chunks
// that are already framed, to avoid an extra buffer copy per chunk.
func (f *Frontend) SendUnbuffered(msg FrontendMessage) error {
	if err := f.Flush(); err != nil {
		return err
	}
	buf := msg.Encode(nil)
	_, err := f.w.Write(buf)
	return err
}

// translateEOF turns a plain io.EOF from the chunk reader into
// io.ErrUnexpectedEOF, so a server that closes the socket, whether
// mid-message or between messages, surfaces as an unexpected EOF.
func translateEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Receive reads and decodes the next backend message. The returned
// message is only valid until the next call to Receive.
func (f *Frontend) Receive() (BackendMessage, error) {
	if !f.partialMsg {
		header, err := f.cr.Next(5)
		if err != nil {
			return nil, translateEOF(err)
		}

		f.msgType = header[0]
		msgLength := int(binary.BigEndian.Uint32(header[1:]))
		if msgLength < 4 {
			return nil, newProtocolError("invalid message length: %d", msgLength)
		}

		f.bodyLen = msgLength - 4
		f.partialMsg = true
	}

	msgBody, err := f.cr.Next(f.bodyLen)
	if err != nil {
		return nil, translateEOF(err)
	}
	f.partialMsg = false

	var msg BackendMessage
	switch f.msgType {
	case '1':
		msg = &f.parseComplete
	case '2':
		msg = &f.bindComplete
	case '3':
		msg = &f.closeComplete
	case 'A':
		msg = &f.notificationResponse
	case 'c':
		msg = &f.copyDone
	case 'C':
		msg = &f.commandComplete
	case 'd':
		msg = &f.copyData
	case 'D':
		msg = &f.dataRow
	case 'E':
		msg = &f.errorResponse
	case 'G':
		msg = &f.copyInResponse
	case 'H':
		msg = &f.copyOutResponse
	case 'I':
		msg = &f.emptyQueryResponse
	case 'K':
		msg = &f.backendKeyData
	case 'n':
		msg = &f.noData
	case 'N':
		msg = &f.noticeResponse
	case 'R':
		msg, err = f.findAuthenticationMessageType(msgBody)
		if err != nil {
			return nil, err
		}
	case 's':
		msg = &f.portalSuspended
	case 'S':
		msg = &f.parameterStatus
	case 't':
		msg = &f.parameterDescription
	case 'T':
		msg = &f.rowDescription
	case 'Z':
		msg = &f.readyForQuery
	default:
		return nil, newProtocolError("unknown message type: %c", f.msgType)
	}

	if err := msg.Decode(msgBody); err != nil {
		return nil, err
	}

	return msg, nil
}

func (f *Frontend) findAuthenticationMessageType(src []byte) (BackendMessage, error) {
	if len(src) < 4 {
		return nil, newProtocolError("authentication message too short")
	}
	f.authType = binary.BigEndian.Uint32(src[:4])

	switch f.authType {
	case AuthTypeOk:
		return &f.authenticationOk, nil
	case AuthTypeCleartextPassword:
		return &f.authenticationCleartextPassword, nil
	case AuthTypeMD5Password:
		return &f.authenticationMD5Password, nil
	case AuthTypeSASL:
		return &f.authenticationSASL, nil
	case AuthTypeSASLContinue:
		return &f.authenticationSASLContinue, nil
	case AuthTypeSASLFinal:
		return &f.authenticationSASLFinal, nil
	default:
		return nil, newProtocolError("unknown authentication type: %s", authTypeName(f.authType))
	}
}

// ReadBufferLen reports how many bytes are buffered but not yet
// consumed. The connection core uses it after the SSLRequest reply to
// check that nothing beyond the reply byte was buffered.
func (f *Frontend) ReadBufferLen() int {
	return f.cr.Buffered()
}

// ReceiveSSLReply reads the single, unframed byte the server sends in
// response to an SSLRequest: 'S' to proceed with TLS, 'N' to continue
// in plaintext. It must be called before any other Receive, and only
// once, since SSLRequest negotiation never repeats on a connection.
func (f *Frontend) ReceiveSSLReply() (byte, error) {
	b, err := f.cr.Next(1)
	if err != nil {
		return 0, translateEOF(err)
	}
	return b[0], nil
}
