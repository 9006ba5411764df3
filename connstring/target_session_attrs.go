package connstring

import (
	"context"
	"fmt"

	"github.com/riverstone/pgwire/pgconn"
)

// TargetSessionAttrsValidator returns a pgconn.ValidateConnectFunc
// implementing the target_session_attrs keyword: it inspects
// hot_standby and transaction_read_only via a throwaway simple query
// and rejects the connection (causing the Connector to advance to the
// next host) if the server doesn't match. "any" and "prefer-standby"
// are not handled here: "any" needs no validator at all, and
// "prefer-standby" is not supported.
func TargetSessionAttrsValidator(attr string) (pgconn.ValidateConnectFunc, error) {
	switch attr {
	case "read-write", "read-only", "primary", "standby":
	case "any":
		return nil, nil
	case "prefer-standby":
		return nil, fmt.Errorf("target_session_attrs=prefer-standby is not supported")
	default:
		return nil, fmt.Errorf("invalid target_session_attrs %q", attr)
	}

	return func(ctx context.Context, c *pgconn.Conn) error {
		hotStandby, readOnly, err := querySessionAttrs(ctx, c)
		if err != nil {
			return err
		}

		var ok bool
		switch attr {
		case "read-write":
			ok = !hotStandby && !readOnly
		case "read-only":
			ok = hotStandby || readOnly
		case "primary":
			ok = !hotStandby
		case "standby":
			ok = hotStandby
		}
		if !ok {
			return fmt.Errorf("target_session_attrs=%s not satisfied (hot_standby=%v, transaction_read_only=%v)", attr, hotStandby, readOnly)
		}
		return nil
	}, nil
}

func querySessionAttrs(ctx context.Context, c *pgconn.Conn) (hotStandby, readOnly bool, err error) {
	results, err := c.Exec(ctx, "SHOW hot_standby; SHOW transaction_read_only;").ReadAll()
	if err != nil {
		return false, false, err
	}
	if len(results) != 2 || len(results[0].Rows) != 1 || len(results[1].Rows) != 1 {
		return false, false, fmt.Errorf("unexpected response validating target_session_attrs")
	}
	hotStandby = string(results[0].Rows[0][0]) == "on"
	readOnly = string(results[1].Rows[0][0]) == "on"
	return hotStandby, readOnly, nil
}
