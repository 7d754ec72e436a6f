package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/99designs/keyring"
	"golang.org/x/term"
)

const (
	keyringServiceName     = "com.lexusenform.auth"
	keyringPasswordService = "accountPassword"
	keyringDirectory       = "~/.enform_keys"
)

type backendType struct {
	config *Config
}

func (b backendType) String() string {
	if b.config == nil || len(b.config.Backend.AllowedBackends) == 0 {
		return string(keyring.InvalidBackend)
	}
	return string(b.config.Backend.AllowedBackends[0])
}

func (b backendType) Set(v string) error {
	value := keyring.BackendType(v)
	if b.config == nil {
		return fmt.Errorf("invalid backendType")
	}
	if v == "" {
		return nil
	}
	for _, name := range keyring.AvailableBackends() {
		if name == value {
			b.config.Backend.AllowedBackends = []keyring.BackendType{name}
			return nil
		}
	}
	return fmt.Errorf("unsupported credential storage")
}

func promptPassword(prompt string) (string, error) {
	var w io.Writer
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		fd = int(os.Stderr.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("no terminal output available for password prompt")
		}
		w = os.Stderr
	} else {
		w = os.Stdout
	}

	fmt.Fprintf(w, "%s: ", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	return string(b), nil
}

// getKeyringPassword unlocks password-protected keyring backends (e.g. the file backend).
func (c *Config) getKeyringPassword(prompt string) (string, error) {
	if c.keyringPassword != nil && *c.keyringPassword != "" {
		return *c.keyringPassword, nil
	}
	password, err := promptPassword(prompt)
	if err != nil {
		return "", err
	}
	c.keyringPassword = &password
	return password, nil
}

func (c *Config) openKeyring() (keyring.Keyring, error) {
	if c.Debug {
		keyring.Debug = true
	}
	return keyring.Open(c.Backend)
}

func (c *Config) passwordKey() string {
	return keyringPasswordService + "." + c.Email
}

// AccountPassword returns the Enform account password: from the environment if set, else
// the system keyring, else an interactive prompt. The resolved password is cached for the
// rest of the process.
func (c *Config) AccountPassword() (string, error) {
	if c.accountPassword != nil && *c.accountPassword != "" {
		return *c.accountPassword, nil
	}
	if password, err := c.LoadPasswordFromKeyring(); err == nil {
		c.accountPassword = &password
		return password, nil
	}
	password, err := promptPassword(fmt.Sprintf("Password for %s", c.Email))
	if err != nil {
		return "", err
	}
	c.accountPassword = &password
	return password, nil
}

// LoadPasswordFromKeyring reads the account password stored under c.Email.
func (c *Config) LoadPasswordFromKeyring() (string, error) {
	kr, err := c.openKeyring()
	if err != nil {
		return "", err
	}
	item, err := kr.Get(c.passwordKey())
	if err != nil {
		return "", fmt.Errorf("could not load password: %s", err)
	}
	return string(item.Data), nil
}

// SavePasswordToKeyring writes the account password to the system keyring under c.Email.
func (c *Config) SavePasswordToKeyring(password string) error {
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}
	if err := kr.Set(keyring.Item{
		Key:  c.passwordKey(),
		Data: []byte(password),
	}); err != nil {
		return fmt.Errorf("failed to enroll password in keyring: %s", err)
	}
	return nil
}

// DeletePasswordFromKeyring removes the account password from the system keyring.
func (c *Config) DeletePasswordFromKeyring() error {
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}
	return kr.Remove(c.passwordKey())
}
