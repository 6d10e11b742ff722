package scanner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"
)

const chunkSize = 64 << 10

// ClamdScanner streams files to a clamd daemon with the zINSTREAM command.
// Each Scan opens one connection and is never retried.
type ClamdScanner struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

func NewClamdScanner(addr string, timeout time.Duration) *ClamdScanner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClamdScanner{addr: addr, timeout: timeout}
}

func (c *ClamdScanner) conn(ctx context.Context) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	return conn, nil
}

// Ping checks that the daemon answers PONG.
func (c *ClamdScanner) Ping(ctx context.Context) error {
	conn, err := c.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("zPING\x00")); err != nil {
		return fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	reply, err := readReply(conn)
	if err != nil {
		return err
	}
	if reply != "PONG" {
		return fmt.Errorf("%w: unexpected reply %q", ErrOracleUnavailable, reply)
	}
	return nil
}

func (c *ClamdScanner) Scan(ctx context.Context, path string) (Verdict, error) {
	f, err := os.Open(path)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to open %s for scanning: %w", path, err)
	}
	defer f.Close()

	conn, err := c.conn(ctx)
	if err != nil {
		return Verdict{}, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := stream(conn, f); err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}

	reply, err := readReply(conn)
	if err != nil {
		return Verdict{}, err
	}
	return parseReply(reply)
}

func stream(w io.Writer, r io.Reader) error {
	bw := bufio.NewWriterSize(w, chunkSize+4)
	if _, err := bw.WriteString("zINSTREAM\x00"); err != nil {
		return err
	}

	buf := make([]byte, chunkSize)
	var size [4]byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			binary.BigEndian.PutUint32(size[:], uint32(n))
			if _, werr := bw.Write(size[:]); werr != nil {
				return werr
			}
			if _, werr := bw.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	binary.BigEndian.PutUint32(size[:], 0)
	if _, err := bw.Write(size[:]); err != nil {
		return err
	}
	return bw.Flush()
}

func readReply(r io.Reader) (string, error) {
	data, err := bufio.NewReader(r).ReadBytes(0)
	if err != nil && !(err == io.EOF && len(data) > 0) {
		return "", fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	return strings.TrimSpace(string(bytes.TrimRight(data, "\x00"))), nil
}

// parseReply decodes "stream: OK", "stream: <name> FOUND" and
// "<message> ERROR".
func parseReply(reply string) (Verdict, error) {
	_, body, ok := strings.Cut(reply, ": ")
	if !ok {
		body = reply
	}

	switch {
	case body == "OK":
		return Verdict{Status: Clean}, nil
	case strings.HasSuffix(body, " FOUND"):
		return Verdict{Status: Suspicious, Threat: strings.TrimSuffix(body, " FOUND")}, nil
	default:
		return Verdict{}, fmt.Errorf("%w: %s", ErrOracleUnavailable, reply)
	}
}
