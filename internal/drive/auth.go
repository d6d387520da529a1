package drive

// auth.go — OAuth2 installed-app credentials for the Drive and Sheets APIs.
//
// The first run needs a client secrets file (--secrets). The client config
// and the resulting token are cached together so later runs can refresh
// without it.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
)

// Scopes are the read-only scopes the downloader requests.
var Scopes = []string{sheets.SpreadsheetsReadonlyScope, gdrive.DriveReadonlyScope}

// DefaultTokenFile is the credential cache, relative to the home directory.
const DefaultTokenFile = ".credentials/amfcheck-googleapis.json"

// ErrNoCredentials is returned when there is no usable cache and no secrets
// file to start the authorisation flow from.
var ErrNoCredentials = errors.New("no valid credentials found and no secrets file given; re-run with --secrets")

type cachedCredentials struct {
	Client json.RawMessage `json:"client"`
	Token  *oauth2.Token   `json:"token"`
}

// Authenticator produces an authorised HTTP client.
type Authenticator struct {
	// SecretsFile is the client secrets JSON downloaded from the Google
	// console. Only needed when the cache is missing or unusable.
	SecretsFile string
	// TokenFile defaults to DefaultTokenFile under the home directory.
	TokenFile string
	// AskCode shows the consent URL and returns the pasted authorisation
	// code.
	AskCode func(authURL string) (string, error)
	Logger  *slog.Logger
}

func (a *Authenticator) log() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}

func (a *Authenticator) tokenFile() (string, error) {
	if a.TokenFile != "" {
		return a.TokenFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, filepath.FromSlash(DefaultTokenFile)), nil
}

// HTTPClient returns a client carrying a valid token, running the consent
// flow when the cache cannot provide one.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	path, err := a.tokenFile()
	if err != nil {
		return nil, err
	}

	if cached, err := loadCredentials(path); err == nil {
		cfg, err := google.ConfigFromJSON(cached.Client, Scopes...)
		if err == nil {
			ts := cfg.TokenSource(ctx, cached.Token)
			if tok, err := ts.Token(); err == nil {
				if tok.AccessToken != cached.Token.AccessToken {
					cached.Token = tok
					if err := saveCredentials(path, cached); err != nil {
						a.log().Warn("could not update credential cache", "path", path, "err", err)
					}
				}
				return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts)), nil
			}
			a.log().Warn("cached token cannot be refreshed", "path", path, "err", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		a.log().Warn("ignoring unreadable credential cache", "path", path, "err", err)
	}

	if a.SecretsFile == "" {
		return nil, fmt.Errorf("%w (cache %s)", ErrNoCredentials, path)
	}
	secrets, err := os.ReadFile(a.SecretsFile)
	if err != nil {
		return nil, fmt.Errorf("read secrets: %w", err)
	}
	cfg, err := google.ConfigFromJSON(secrets, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse secrets %s: %w", a.SecretsFile, err)
	}
	if a.AskCode == nil {
		return nil, errors.New("authorisation required but no way to ask for a code")
	}
	code, err := a.AskCode(cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))
	if err != nil {
		return nil, fmt.Errorf("authorisation code: %w", err)
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorisation code: %w", err)
	}
	if err := saveCredentials(path, &cachedCredentials{Client: secrets, Token: tok}); err != nil {
		return nil, err
	}
	a.log().Info("stored credentials", "path", path)
	return cfg.Client(ctx, tok), nil
}

func loadCredentials(path string) (*cachedCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c cachedCredentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.Token == nil || len(c.Client) == 0 {
		return nil, fmt.Errorf("%s: incomplete credentials", path)
	}
	return &c, nil
}

func saveCredentials(path string, c *cachedCredentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
