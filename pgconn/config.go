package pgconn

import (
	"context"
	"crypto/tls"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/riverstone/pgwire/tracelog"
)

// HostConfig is one candidate address the Connector tries in order.
// A Host starting with "/" is a Unix domain socket directory; anything
// else is dialed over TCP.
type HostConfig struct {
	Host      string
	Port      uint16
	Password  string
	TLSConfig *tls.Config // nil disables TLS for this host

	// TLSRequired rejects the host's plaintext fallback when the
	// server declines TLS (sslmode require/verify-ca/verify-full);
	// when false, an 'N' SSLRequest reply falls back to plaintext
	// (sslmode allow/prefer).
	TLSRequired bool
}

// NoticeHandler is invoked, synchronously and on the receiving
// connection's own goroutine, whenever a NoticeResponse arrives.
type NoticeHandler func(*Conn, *Notice)

// NotificationHandler is invoked whenever a NotificationResponse
// (LISTEN/NOTIFY) arrives.
type NotificationHandler func(*Conn, *Notification)

// AfterConnectFunc runs once startup and authentication have
// succeeded but before the Connector returns. Returning an error
// aborts the connection attempt.
type AfterConnectFunc func(ctx context.Context, c *Conn) error

// ValidateConnectFunc runs after AfterConnectFunc and can reject a
// connection based on server state (e.g. target_session_attrs).
// Returning an error aborts this host and advances to the next
// fallback, same as any other connect failure.
type ValidateConnectFunc func(ctx context.Context, c *Conn) error

// DialFunc opens the network connection to one HostConfig's address.
// The default, set by NewConfig, is the DialContext of a net.Dialer
// whose Timeout is the default connect timeout.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Config collects everything the Connector needs to establish and
// configure a single connection. At least one entry in Hosts is
// required; User is required.
type Config struct {
	Hosts    []*HostConfig
	User     string
	Database string

	ConnectTimeout time.Duration
	RuntimeParams  map[string]string
	DialFunc       DialFunc

	MinReadBufferSize int

	Logger   tracelog.Logger
	LogLevel tracelog.LogLevel

	OnNotice        NoticeHandler
	OnNotification  NotificationHandler
	AfterConnect    AfterConnectFunc
	ValidateConnect ValidateConnectFunc
}

// defaultConnectTimeout matches libpq's default connect_timeout.
const defaultConnectTimeout = 2 * time.Second

// defaultMinReadBufferSize is the chunk reader's default minimum read
// size, matching spec §6.
const defaultMinReadBufferSize = 8192

// NewConfig returns a Config with the default connect timeout, the
// default minimum read buffer size, and an empty RuntimeParams map
// ready for population. Callers still need to set Hosts and User.
func NewConfig() *Config {
	dialer := &net.Dialer{Timeout: defaultConnectTimeout}
	return &Config{
		ConnectTimeout:    defaultConnectTimeout,
		MinReadBufferSize: defaultMinReadBufferSize,
		RuntimeParams:     make(map[string]string),
		LogLevel:          tracelog.LogLevelNone,
		DialFunc:          dialer.DialContext,
	}
}

// defaultHost mimics libpq's default host: the compiled-in Unix
// socket directory on *nix, falling back to 127.0.0.1. Since this
// driver has no compiled-in default, it checks the same well-known
// candidate paths libpq's distributions use.
func defaultHost() string {
	for _, path := range []string{
		"/var/run/postgresql", // Debian
		"/private/tmp",        // macOS Homebrew
		"/tmp",                // standard PostgreSQL
	} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return "127.0.0.1"
}

// DefaultHostConfig returns a HostConfig populated with the library's
// baseline defaults: the detected default host, port 5432, and no
// TLS. connstring.ParseConfig does not call it; it builds its
// HostConfigs itself with the same default host probing.
func DefaultHostConfig() *HostConfig {
	return &HostConfig{
		Host: defaultHost(),
		Port: 5432,
	}
}

// NetworkAddress converts a host/port pair into the network and
// address net.Dial expects, following libpq's convention that a host
// starting with "/" names a Unix socket directory rather than a TCP
// host.
func NetworkAddress(host string, port uint16) (network, address string) {
	if len(host) > 0 && host[0] == '/' {
		return "unix", host + "/.s.PGSQL." + strconv.Itoa(int(port))
	}
	return "tcp", net.JoinHostPort(host, strconv.Itoa(int(port)))
}

// Copy returns a deep-enough copy of c suitable for passing to a
// Connector: RuntimeParams and Hosts are copied so mutating the
// original Config after Connect does not race the connection attempt.
func (c *Config) Copy() *Config {
	copied := *c
	copied.RuntimeParams = make(map[string]string, len(c.RuntimeParams))
	for k, v := range c.RuntimeParams {
		copied.RuntimeParams[k] = v
	}
	copied.Hosts = make([]*HostConfig, len(c.Hosts))
	for i, h := range c.Hosts {
		hc := *h
		copied.Hosts[i] = &hc
	}
	return &copied
}
