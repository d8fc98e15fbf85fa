package relay

import (
	"context"
	"io"
	"net"
	"net/url"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPSource reads camera drop files from an FTP directory. Each call dials a
// fresh connection; drop boxes are small and camera firmware tends to reject
// concurrent sessions.
type FTPSource struct {
	host    string
	user    string
	pass    string
	dir     string
	timeout time.Duration
}

// NewFTPSource parses an ftp:// URL (credentials in the userinfo, directory
// in the path) into a source. Missing credentials fall back to anonymous.
func NewFTPSource(rawURL string, timeout time.Duration) (*FTPSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "relay: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return nil, eris.Errorf("relay: expected ftp scheme, got %q", u.Scheme)
	}

	host := u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	user, pass := "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}

	dir := u.Path
	if dir == "" {
		dir = "/"
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &FTPSource{host: host, user: user, pass: pass, dir: dir, timeout: timeout}, nil
}

// Entry is one remote file eligible for submission.
type Entry struct {
	Path string
	Size int64
}

// List returns the regular, non-empty files in the drop directory.
func (f *FTPSource) List(ctx context.Context) ([]Entry, error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit() //nolint:errcheck

	entries, err := conn.List(f.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "relay: list %s", f.dir)
	}

	var out []Entry
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile || e.Size == 0 {
			continue
		}
		out = append(out, Entry{Path: path.Join(f.dir, e.Name), Size: int64(e.Size)})
	}
	return out, nil
}

// Fetch downloads one remote file fully into memory. The gateway caps
// attachment sizes, so drop files stay small.
func (f *FTPSource) Fetch(ctx context.Context, remotePath string) ([]byte, error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit() //nolint:errcheck

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return nil, eris.Wrapf(err, "relay: retrieve %s", remotePath)
	}
	defer resp.Close() //nolint:errcheck

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, eris.Wrapf(err, "relay: read %s", remotePath)
	}
	return data, nil
}

func (f *FTPSource) dial(ctx context.Context) (*ftp.ServerConn, error) {
	zap.L().Debug("relay: ftp connecting", zap.String("host", f.host), zap.String("dir", f.dir))

	conn, err := ftp.Dial(f.host, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "relay: ftp dial")
	}
	if err := conn.Login(f.user, f.pass); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "relay: ftp login")
	}
	return conn, nil
}
