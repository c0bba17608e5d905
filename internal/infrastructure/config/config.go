package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/davarch/notarize/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultMaxAttempts  = 40
	defaultTimeout      = 30 * time.Minute
)

type Config struct {
	Auth struct {
		Legacy          bool   `yaml:"legacy"`
		KeychainProfile string `yaml:"keychain_profile,omitempty"`
		Username        string `yaml:"username,omitempty"`
		Password        string `yaml:"password,omitempty"`
		BundleID        string `yaml:"bundle_id,omitempty"`
	} `yaml:"auth"`

	Notary struct {
		Xcrun        string        `yaml:"xcrun"`
		Spctl        string        `yaml:"spctl"`
		PollInterval time.Duration `yaml:"poll_interval"`
		MaxAttempts  int           `yaml:"max_attempts"`
		Timeout      time.Duration `yaml:"timeout"`
		Diagnostics  bool          `yaml:"diagnostics"`
	} `yaml:"notary"`
}

func Default() Config {
	var c Config
	c.Notary.Xcrun = "xcrun"
	c.Notary.Spctl = "spctl"
	c.Notary.PollInterval = defaultPollInterval
	c.Notary.MaxAttempts = defaultMaxAttempts
	c.Notary.Timeout = defaultTimeout
	c.Notary.Diagnostics = true
	return c
}

// Load reads path (a missing file is fine), then applies env overrides.
// Credentials are checked separately by Credentials.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, domain.ConfigurationError("parse "+path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return c, domain.ConfigurationError("read "+path, err)
		}
	}

	if v := os.Getenv("USE_LEGACY_AUTH"); v != "" {
		c.Auth.Legacy = truthy(v)
	}

	if v := os.Getenv("KEYCHAIN_PROFILE_REF"); v != "" {
		c.Auth.KeychainProfile = v
	}

	if v := os.Getenv("LEGACY_USERNAME"); v != "" {
		c.Auth.Username = v
	}

	if v := os.Getenv("LEGACY_PASSWORD"); v != "" {
		c.Auth.Password = v
	}

	if v := os.Getenv("LEGACY_BUNDLE_ID"); v != "" {
		c.Auth.BundleID = v
	}

	if v := os.Getenv("NOTARIZE_XCRUN"); v != "" {
		c.Notary.Xcrun = v
	}

	if v := os.Getenv("NOTARIZE_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, domain.ConfigurationError("NOTARIZE_POLL_INTERVAL", err)
		}
		c.Notary.PollInterval = d
	}

	if v := os.Getenv("NOTARIZE_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, domain.ConfigurationError("NOTARIZE_MAX_ATTEMPTS", err)
		}
		c.Notary.MaxAttempts = n
	}

	if v := os.Getenv("NOTARIZE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, domain.ConfigurationError("NOTARIZE_TIMEOUT", err)
		}
		c.Notary.Timeout = d
	}

	if c.Notary.Xcrun == "" {
		c.Notary.Xcrun = "xcrun"
	}

	if c.Notary.PollInterval <= 0 {
		return c, domain.Errorf(domain.KindConfiguration, "notary.poll_interval", "must be positive, got %s", c.Notary.PollInterval)
	}

	if c.Notary.MaxAttempts < 1 {
		return c, domain.Errorf(domain.KindConfiguration, "notary.max_attempts", "must be at least 1, got %d", c.Notary.MaxAttempts)
	}

	if c.Notary.Timeout <= 0 {
		return c, domain.Errorf(domain.KindConfiguration, "notary.timeout", "must be positive, got %s", c.Notary.Timeout)
	}

	return c, nil
}

// Credentials selects the auth mode and checks that its values are present.
func (c Config) Credentials() (domain.Credentials, error) {
	if !c.Auth.Legacy {
		if c.Auth.KeychainProfile == "" {
			return nil, domain.Errorf(domain.KindConfiguration, "modern auth", "KEYCHAIN_PROFILE_REF is required")
		}
		return domain.ModernAuth{Profile: c.Auth.KeychainProfile}, nil
	}

	var missing []string
	if c.Auth.Username == "" {
		missing = append(missing, "LEGACY_USERNAME")
	}
	if c.Auth.Password == "" {
		missing = append(missing, "LEGACY_PASSWORD")
	}
	if len(missing) > 0 {
		return nil, domain.Errorf(domain.KindConfiguration, "legacy auth", "%s required", strings.Join(missing, " and "))
	}

	return domain.LegacyAuth{
		Username: c.Auth.Username,
		Password: c.Auth.Password,
		BundleID: c.Auth.BundleID,
	}, nil
}

// Save writes c to path atomically. The password is never written.
func Save(path string, c Config) error {
	if path == "" {
		return errors.New("empty config path")
	}

	c.Auth.Password = ""
	b, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := writeLocked(path, b); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// writeLocked replaces path with b while holding path.lock. A failed
// write leaves the previous file in place and no temp file behind.
func writeLocked(path string, b []byte) error {
	unlock, err := lock(path + ".lock")
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	committed = true
	return nil
}

func lock(name string) (func(), error) {
	lf, err := os.OpenFile(name, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if runtime.GOOS == "windows" {
		return func() { _ = lf.Close() }, nil
	}
	if err := syscall.Flock(int(lf.Fd()), syscall.LOCK_EX); err != nil {
		_ = lf.Close()
		return nil, err
	}
	return func() {
		_ = syscall.Flock(int(lf.Fd()), syscall.LOCK_UN)
		_ = lf.Close()
	}, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on", "y":
		return true
	default:
		return false
	}
}
