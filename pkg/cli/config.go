/*
Package cli facilitates building command-line applications around the Enform client. It
defines a [Config] type that registers common command-line flags (using the Golang flag
package) and environment variable equivalents, and resolves the account password from the
system keyring.

The package uses [keyring]'s platform-agnostic interface so the password lands in an
OS-appropriate credential store. A `.env` file in the working directory is loaded before
the environment is read, which keeps local development credentials out of shell history.

	config, err := cli.NewConfig()
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags() // Adds -email, -vin, -cache-file, keyring flags
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields from $ENFORM_* variables

	acct, err := config.Account()     // Resolves the password and builds the Account
*/
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/99designs/keyring"
	"github.com/joho/godotenv"

	"github.com/lexusenform/vehicle-remote/internal/log"
	"github.com/lexusenform/vehicle-remote/pkg/account"
)

// Environment variable names used by [Config.ReadFromEnvironment].
const (
	EnvEmail        = "ENFORM_EMAIL"
	EnvPassword     = "ENFORM_PASSWORD" // Discouraged outside scripts; prefer the keyring.
	EnvVIN          = "ENFORM_VIN"
	EnvCacheFile    = "ENFORM_CACHE_FILE"
	EnvKeyringType  = "ENFORM_KEYRING_TYPE"
	EnvKeyringPass  = "ENFORM_KEYRING_PASSWORD"
	EnvKeyringPath  = "ENFORM_KEYRING_PATH"
	EnvKeyringDebug = "ENFORM_KEYRING_DEBUG"
)

var ErrNoEmail = errors.New("account email not provided")

// Config fields determine how a client authenticates to the Enform service.
type Config struct {
	Email         string
	VIN           string
	CacheFilename string
	Backend       keyring.Config
	BackendType   backendType
	Debug         bool // Enable keyring debug messages

	accountPassword *string
	keyringPassword *string
}

// NewConfig returns a Config with keyring defaults applied. A `.env` file in the working
// directory, if present, is loaded into the environment first.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}
	c := Config{
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getKeyringPassword
	c.Backend.FilePasswordFunc = c.getKeyringPassword
	return &c, nil
}

func (c *Config) RegisterCommandLineFlags() {
	flag.StringVar(&c.Email, "email", "", "Enform account email. Defaults to $ENFORM_EMAIL.")
	flag.StringVar(&c.VIN, "vin", "", "Full Vehicle Identification Number. Defaults to $ENFORM_VIN.")
	flag.StringVar(&c.CacheFilename, "cache-file", "", "Token cache `file`. Defaults to $ENFORM_CACHE_FILE.")

	var names []string
	for _, name := range keyring.AvailableBackends() {
		names = append(names, string(name))
	}
	sort.Strings(names)
	flag.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $ENFORM_KEYRING_TYPE.")
	flag.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "keyring `directory` for file-backed keyring types")
	flag.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
}

// ReadFromEnvironment populates c using environment variables. Values that are already
// populated are not overwritten, so call this after flag.Parse() to keep explicit
// command-line parameters authoritative.
func (c *Config) ReadFromEnvironment() {
	if c.Email == "" {
		c.Email = os.Getenv(EnvEmail)
		log.Debug("Set email to '%s'", c.Email)
	}
	if c.VIN == "" {
		c.VIN = os.Getenv(EnvVIN)
		log.Debug("Set VIN to '%s'", c.VIN)
	}
	if c.CacheFilename == "" {
		c.CacheFilename = os.Getenv(EnvCacheFile)
		log.Debug("Set token cache file to '%s'", c.CacheFilename)
	}
	if c.BackendType.String() == string(keyring.InvalidBackend) {
		if err := c.BackendType.Set(os.Getenv(EnvKeyringType)); err == nil {
			log.Debug("Set keyring type to '%s'", c.BackendType)
		}
	}
	if c.accountPassword == nil {
		if password, ok := os.LookupEnv(EnvPassword); ok {
			c.accountPassword = &password
		}
	}
	if c.keyringPassword == nil {
		password := os.Getenv(EnvKeyringPass)
		c.keyringPassword = &password
	}
	if c.Backend.FileDir == "" {
		c.Backend.FileDir = os.Getenv(EnvKeyringPath)
		log.Debug("Set keyring file path to '%s'", c.Backend.FileDir)
	}
	if !c.Debug {
		_, c.Debug = os.LookupEnv(EnvKeyringDebug)
	}
}

// DefaultCacheFilename returns the conventional token cache location under the user cache
// directory, used when neither -cache-file nor $ENFORM_CACHE_FILE is set.
func DefaultCacheFilename() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "enform", "tokens.json")
}

// Account resolves the password and builds an authenticated [account.Account]. The
// password comes from $ENFORM_PASSWORD, then the system keyring, then an interactive
// terminal prompt.
func (c *Config) Account() (*account.Account, error) {
	if c.Email == "" {
		return nil, ErrNoEmail
	}
	password, err := c.AccountPassword()
	if err != nil {
		return nil, err
	}
	cacheFilename := c.CacheFilename
	if cacheFilename == "" {
		cacheFilename = DefaultCacheFilename()
		if cacheFilename != "" {
			if err := os.MkdirAll(filepath.Dir(cacheFilename), 0700); err != nil {
				log.Warning("Cannot create cache directory, operating in memory: %s", err)
				cacheFilename = ""
			}
		}
	}
	return account.New(c.Email, password, cacheFilename), nil
}
