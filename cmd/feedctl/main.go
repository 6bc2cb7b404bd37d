// Command feedctl is a CLI client for the votefeed service.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/votefeed/internal/client"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "votefeed")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "votefeed")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

var errNoToken = errors.New("no valid token (run `feedctl token`)")

func loadToken() (tokenFile, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return tokenFile{}, errNoToken
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return tokenFile{}, err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return tokenFile{}, errNoToken
	}
	return tf, nil
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// ---- root ----

type globals struct {
	addr      string
	caPath    string
	insecure  bool
	plaintext bool
	verbose   bool
	timeout   time.Duration
}

func (g *globals) logger() *zap.Logger {
	if !g.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// dial connects with the saved token, if any. Calls that need an identity
// fail server-side with Unauthenticated when it is missing.
func (g *globals) dial(stderr io.Writer) (*client.Client, error) {
	tf, err := loadToken()
	if err != nil && !errors.Is(err, errNoToken) {
		return nil, err
	}
	return client.Dial(g.addr, client.Options{
		Token:     tf.AccessToken,
		CACert:    g.caPath,
		Insecure:  g.insecure,
		Plaintext: g.plaintext,
		OnUnauthenticated: func() {
			fmt.Fprintln(stderr, "not signed in or token expired; run `feedctl token`")
		},
		Logger: g.logger(),
	})
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "feedctl",
		Short:         "votefeed CLI client",
		Version:       fmt.Sprintf("%s (%s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&g.addr, "addr", "localhost:8443", "server addr")
	pf.StringVar(&g.caPath, "cacert", "", "CA cert (PEM)")
	pf.BoolVar(&g.insecure, "insecure", false, "skip cert verify (dev)")
	pf.BoolVar(&g.plaintext, "plaintext", false, "connect without TLS (dev)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log client activity to stderr")
	pf.DurationVar(&g.timeout, "timeout", 30*time.Second, "per-command deadline")

	root.AddCommand(
		newTokenCmd(),
		newFeedCmd(g),
		newPostCmd(g),
		newItemCmd(g),
		newEditCmd(g),
		newRmCmd(g),
		newVoteCmd(g),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
