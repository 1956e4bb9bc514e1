// Package transport provides the Unix-domain-socket byte transport
// used to reach a D-Bus session or system bus, including the minimal
// SASL AUTH EXTERNAL handshake Unix sockets need.
//
// File-descriptor passing is not implemented: signature code 'h' is
// unsupported by this client, so there is nothing that would ever
// read the ancillary data a full SCM_RIGHTS implementation requires.
package transport

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Transport is a raw byte-stream connection to a bus.
type Transport interface {
	io.ReadWriteCloser
}

// DialUnix connects to the bus listening on the Unix domain socket at
// path, and performs the AUTH EXTERNAL handshake.
func DialUnix(ctx context.Context, path string) (Transport, error) {
	addr := &net.UnixAddr{Net: "unix", Name: path}
	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, err
	}

	ret := &unixTransport{conn: conn}
	ret.buf = bufio.NewReader(conn)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := ret.conn.SetDeadline(deadline); err != nil {
		ret.Close()
		return nil, err
	}
	if err := ret.auth(); err != nil {
		ret.Close()
		return nil, err
	}
	if err := ret.conn.SetDeadline(time.Time{}); err != nil {
		ret.Close()
		return nil, err
	}
	return ret, nil
}

type unixTransport struct {
	conn *net.UnixConn
	buf  *bufio.Reader
}

func (u *unixTransport) Read(bs []byte) (int, error)  { return u.buf.Read(bs) }
func (u *unixTransport) Write(bs []byte) (int, error) { return u.conn.Write(bs) }

func (u *unixTransport) Close() error {
	u.buf.Reset(nil)
	return u.conn.Close()
}

// auth performs the EXTERNAL SASL mechanism used over Unix sockets:
// the bus authenticates the connection using peer credentials it
// reads off the socket itself, so the client only needs to send its
// uid hex-encoded and check for the expected OK/AGREE_UNIX_FD
// exchange.
func (u *unixTransport) auth() error {
	uid := os.Getuid()
	uidHex := hex.EncodeToString([]byte(strconv.Itoa(uid)))
	if _, err := u.conn.Write([]byte("\x00AUTH EXTERNAL ")); err != nil {
		return err
	}
	if _, err := io.WriteString(u.conn, uidHex); err != nil {
		return err
	}
	if _, err := u.conn.Write([]byte("\r\nNEGOTIATE_UNIX_FD\r\nBEGIN\r\n")); err != nil {
		return err
	}

	resp, err := u.buf.ReadString('\n')
	if err != nil {
		return err
	}
	if !strings.HasPrefix(resp, "OK ") {
		return fmt.Errorf("AUTH EXTERNAL failed, server said %q", strings.TrimSpace(resp))
	}

	resp, err = u.buf.ReadString('\n')
	if err != nil {
		return err
	}
	if resp != "AGREE_UNIX_FD\r\n" {
		return fmt.Errorf("NEGOTIATE_UNIX_FD failed, server said %q", strings.TrimSpace(resp))
	}
	return nil
}
