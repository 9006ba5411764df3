// Command pgcli is a minimal interactive client for exercising a
// pgwire connection from the terminal: connect, run statements
// separated by ';', and LISTEN on a channel to print notifications as
// they arrive.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/riverstone/pgwire/connstring"
	"github.com/riverstone/pgwire/pgconn"
	"github.com/riverstone/pgwire/tracelog"
	"github.com/riverstone/pgwire/tracelog/zerologadapter"
)

var options struct {
	dsn     string
	listen  string
	logJSON bool
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [options]\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.StringVar(&options.dsn, "dsn", os.Getenv("PGWIRE_DSN"), "connection string or URL (falls back to PG* env vars)")
	flag.StringVar(&options.listen, "listen", "", "LISTEN on this channel and print notifications instead of reading statements")
	flag.BoolVar(&options.logJSON, "log", false, "enable debug-level logging (only the connect event is logged)")
	flag.Parse()

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	config, err := connstring.ParseConfig(options.dsn)
	if err != nil {
		return fmt.Errorf("parse connection string: %w", err)
	}

	if options.logJSON {
		zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
		config.Logger = zerologadapter.NewLogger(zl)
		config.LogLevel = tracelog.LogLevelDebug
	}

	config.OnNotice = func(_ *pgconn.Conn, n *pgconn.Notice) {
		fmt.Fprintf(os.Stderr, "%s: %s\n", n.Severity, n.Message)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout+5*time.Second)
	defer cancel()

	conn, err := pgconn.Connect(ctx, config)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if options.listen != "" {
		return listenLoop(conn, options.listen)
	}
	return execLoop(conn)
}

func listenLoop(conn *pgconn.Conn, channel string) error {
	ctx := context.Background()
	if _, err := conn.Exec(ctx, "LISTEN "+quoteIdent(channel)).ReadAll(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	fmt.Printf("listening on %q, ctrl-c to stop\n", channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		fmt.Printf("notification: pid=%d channel=%s payload=%s\n", n.PID, n.Channel, n.Payload)
	}
}

func execLoop(conn *pgconn.Conn) error {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		sql := strings.TrimSpace(scanner.Text())
		if sql == "" {
			fmt.Print("> ")
			continue
		}
		if sql == "\\q" {
			return nil
		}

		results, err := conn.Exec(ctx, sql).ReadAll()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		for _, r := range results {
			printResult(r)
		}
		fmt.Print("> ")
	}
	return scanner.Err()
}

func printResult(r *pgconn.Result) {
	if len(r.FieldDescriptions) > 0 {
		names := make([]string, len(r.FieldDescriptions))
		for i, fd := range r.FieldDescriptions {
			names[i] = fd.Name
		}
		fmt.Println(strings.Join(names, "\t"))
		for _, row := range r.Rows {
			cols := make([]string, len(row))
			for i, v := range row {
				if v == nil {
					cols[i] = "NULL"
				} else {
					cols[i] = string(v)
				}
			}
			fmt.Println(strings.Join(cols, "\t"))
		}
	}
	fmt.Println(r.CommandTag.String())
}

// quoteIdent wraps an identifier in double quotes, doubling any
// embedded quote, so a channel name can be interpolated into LISTEN
// without a prepared statement (LISTEN takes no bind parameters).
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
