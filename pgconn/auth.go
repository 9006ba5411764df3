package pgconn

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/riverstone/pgwire/pgproto3"
	"github.com/riverstone/pgwire/scram"
)

// maxAuthLoopIterations bounds the authentication message loop so a
// misbehaving or malicious server cannot wedge the Connector forever.
// Not a protocol invariant — a real exchange never takes more than a
// handful of round trips.
const maxAuthLoopIterations = 5

// maxParamIngestIterations bounds parameter ingestion similarly.
const maxParamIngestIterations = 1000

func (c *Conn) startup(ctx context.Context, config *Config, hc *HostConfig) error {
	params := map[string]string{
		"user": config.User,
	}
	if config.Database != "" {
		params["database"] = config.Database
	}
	for k, v := range config.RuntimeParams {
		params[k] = v
	}

	c.frontend.Send(&pgproto3.StartupMessage{
		ProtocolVersion: pgproto3.ProtocolVersionNumber,
		Parameters:      params,
	})
	return c.flush(ctx)
}

func (c *Conn) authenticate(ctx context.Context, user, password string) error {
	for i := 0; i < maxAuthLoopIterations; i++ {
		msg, err := c.frontend.Receive()
		if err != nil {
			return err
		}

		switch m := msg.(type) {
		case *pgproto3.AuthenticationOk:
			return nil

		case *pgproto3.AuthenticationCleartextPassword:
			c.frontend.Send(&pgproto3.PasswordMessage{Password: password})
			if err := c.flush(ctx); err != nil {
				return err
			}

		case *pgproto3.AuthenticationMD5Password:
			digest := md5Hex(md5Hex(password+user) + string(m.Salt[:]))
			c.frontend.Send(&pgproto3.PasswordMessage{Password: "md5" + digest})
			if err := c.flush(ctx); err != nil {
				return err
			}

		case *pgproto3.AuthenticationSASL:
			if err := c.authenticateSASL(ctx, m, password); err != nil {
				return err
			}

		case *pgproto3.ErrorResponse:
			return errorResponseToPgError(m)

		default:
			return fmt.Errorf("unexpected message during authentication: %T", m)
		}
	}
	return fmt.Errorf("authentication did not complete within %d messages", maxAuthLoopIterations)
}

func (c *Conn) authenticateSASL(ctx context.Context, saslMsg *pgproto3.AuthenticationSASL, password string) error {
	var mechanism string
	for _, m := range saslMsg.AuthMechanisms {
		if m == scram.Mechanism {
			mechanism = m
			break
		}
	}
	if mechanism == "" {
		return fmt.Errorf("server does not support %s", scram.Mechanism)
	}

	client := scram.NewClient(password)

	c.frontend.Send(&pgproto3.SASLInitialResponse{
		AuthMechanism: mechanism,
		Data:          client.ClientFirstMessage(),
	})
	if err := c.flush(ctx); err != nil {
		return err
	}

	msg, err := c.frontend.Receive()
	if err != nil {
		return err
	}
	cont, ok := msg.(*pgproto3.AuthenticationSASLContinue)
	if !ok {
		if errResp, ok := msg.(*pgproto3.ErrorResponse); ok {
			return errorResponseToPgError(errResp)
		}
		return fmt.Errorf("expected AuthenticationSASLContinue, got %T", msg)
	}
	if err := client.RecvServerFirstMessage(cont.Data); err != nil {
		return err
	}

	c.frontend.Send(&pgproto3.SASLResponse{Data: client.ClientFinalMessage()})
	if err := c.flush(ctx); err != nil {
		return err
	}

	msg, err = c.frontend.Receive()
	if err != nil {
		return err
	}
	final, ok := msg.(*pgproto3.AuthenticationSASLFinal)
	if !ok {
		if errResp, ok := msg.(*pgproto3.ErrorResponse); ok {
			return errorResponseToPgError(errResp)
		}
		return fmt.Errorf("expected AuthenticationSASLFinal, got %T", msg)
	}
	if err := client.RecvServerFinalMessage(final.Data); err != nil {
		return err
	}

	msg, err = c.frontend.Receive()
	if err != nil {
		return err
	}
	if _, ok := msg.(*pgproto3.AuthenticationOk); !ok {
		if errResp, ok := msg.(*pgproto3.ErrorResponse); ok {
			return errorResponseToPgError(errResp)
		}
		return fmt.Errorf("expected AuthenticationOk after SASL exchange, got %T", msg)
	}
	return nil
}

func (c *Conn) ingestParams(ctx context.Context) error {
	for i := 0; i < maxParamIngestIterations; i++ {
		msg, err := c.frontend.Receive()
		if err != nil {
			return err
		}

		switch m := msg.(type) {
		case *pgproto3.BackendKeyData:
			c.pid = m.ProcessID
			c.secretKey = m.SecretKey

		case *pgproto3.ParameterStatus:
			c.parameters[m.Name] = m.Value

		case *pgproto3.ReadyForQuery:
			c.txStatus = m.TxStatus
			return nil

		case *pgproto3.ErrorResponse:
			return errorResponseToPgError(m)

		default:
			return fmt.Errorf("unexpected message during parameter ingestion: %T", m)
		}
	}
	return fmt.Errorf("parameter ingestion did not reach ReadyForQuery within %d messages", maxParamIngestIterations)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
