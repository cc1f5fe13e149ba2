// Command nk is a CLI client for the notekeeper service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	pb "github.com/and161185/notekeeper/api/notekeeper/v1"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "notekeeper")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "notekeeper")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	b, err := sonic.ConfigStd.MarshalIndent(tokenFile{AccessToken: tok, ExpiresAt: exp}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tokenPath(), b, 0o600)
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := sonic.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (run: nk token -t <jwt>)")
	}
	return tf.AccessToken, nil
}

// tokenExpiry reads exp from a JWT without verifying it.
func tokenExpiry(tok string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser().ParseUnverified(tok, &claims)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Now().Add(15 * time.Minute), nil
	}
	return claims.ExpiresAt.Time, nil
}

// ---- grpc dial ----

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

func loadTLS(caPath string, skipVerify bool) (credentials.TransportCredentials, error) {
	if skipVerify {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

type dialOptions struct {
	addr       string
	caPath     string
	skipVerify bool
	plaintext  bool
	bearer     string
}

func dial(o dialOptions) (*grpc.ClientConn, pb.NotesClient, error) {
	creds := insecure.NewCredentials()
	if !o.plaintext {
		var err error
		if creds, err = loadTLS(o.caPath, o.skipVerify); err != nil {
			return nil, nil, err
		}
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if o.bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: o.bearer, secure: !o.plaintext}))
	}
	cc, err := grpc.NewClient(o.addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cc, pb.NewNotesClient(cc), nil
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func usage() {
	fmt.Fprintf(os.Stderr, `nk CLI
Usage:
  nk -addr HOST:PORT [-cacert file | -insecure | -plaintext] <cmd> [args]

Commands:
  version
  token      -t <jwt>                                 (saves token)
  create     -title <t> [-file <path|->] [-tags a,b] [-privacy P] [-folder id] [-password pw]
  get        -id <uuid> [-password pw]
  shared     -token <share token> [-password pw]
  edit       -id <uuid> [-title t] [-file path|-] [-tags a,b] [-privacy P] [-folder id|none]
             [-password pw|none] [-pin bool] [-archive bool] [-if-version n]
  ls         [-folder id] [-archived] [-limit n] [-offset n] [-sort f] [-order asc|desc]
  search     -q <text> [-tags a,b] [-folder id] [-privacy P] [-archived] [-limit n] [-offset n]
  rm         -id <uuid>
  restore    -id <uuid>
  purge      -id <uuid>
  versions   -id <uuid>
  revert     -id <uuid> -v <n>
  dup        -id <uuid>
  enrichment -id <uuid>
  share      -id <uuid> [-ttl 24h]
  unshare    -id <uuid> -link <uuid>
  collab     -id <uuid> -user <uuid> [-perm READ|WRITE] [-rm]
  folders
  mkdir      -name <n> [-parent id]
  reindex
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main handles global flags and the commands that need no connection, then
// dispatches the rest over an authenticated client.
func main() {
	addr := flag.String("addr", "localhost:8443", "server addr")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	skipVerify := flag.Bool("insecure", false, "skip cert verify (dev)")
	plaintext := flag.Bool("plaintext", false, "no TLS (dev)")
	timeout := flag.Duration("timeout", 30*time.Second, "per-command timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	switch cmd {
	case "version":
		fmt.Printf("nk %s (%s)\n", version, buildDate)
		return
	case "token":
		fs := flag.NewFlagSet("token", flag.ExitOnError)
		t := fs.String("t", "", "access token (JWT)")
		_ = fs.Parse(args)
		if *t == "" {
			fmt.Fprintln(os.Stderr, "need -t")
			os.Exit(1)
		}
		exp, err := tokenExpiry(*t)
		if err != nil {
			fail(err)
		}
		if err := saveToken(*t, exp); err != nil {
			fail(err)
		}
		fmt.Println("ok")
		return
	}

	// shared links are readable without a token
	token, err := loadToken()
	if err != nil && cmd != "shared" {
		fail(err)
	}

	cc, cli, err := dial(dialOptions{addr: *addr, caPath: *caPath, skipVerify: *skipVerify, plaintext: *plaintext, bearer: token})
	if err != nil {
		fail(err)
	}
	defer cc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cli, cmd, args, os.Stdout); err != nil {
		if errors.Is(err, errUnknownCommand) {
			usage()
		}
		fail(err)
	}
}

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
