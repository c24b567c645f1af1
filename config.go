// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/kjk/u"
	"github.com/spf13/viper"

	"github.com/kjk/cynic/api"
)

// Config is the server configuration, read from a yaml file and
// CYNIC_* environment variables
type Config struct {
	APIBaseURL       string        `mapstructure:"api_base_url"`
	CookieAuthKeyHex string        `mapstructure:"cookie_auth_key_hex"`
	CookieEncrKeyHex string        `mapstructure:"cookie_encr_key_hex"`
	RedisURL         string        `mapstructure:"redis_url"`
	StateTTL         time.Duration `mapstructure:"state_ttl"`
	MaxClients       int           `mapstructure:"max_clients"`
	AnalyticsCode    string        `mapstructure:"analytics_code"`
	AdminUserIDs     []string      `mapstructure:"admin_user_ids"`
	FeedTitle        string        `mapstructure:"feed_title"`
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("api_base_url", api.DefaultBaseURL)
	v.SetDefault("cookie_auth_key_hex", "")
	v.SetDefault("cookie_encr_key_hex", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("state_ttl", "24h")
	v.SetDefault("max_clients", 10000)
	v.SetDefault("analytics_code", "")
	v.SetDefault("admin_user_ids", []string{})
	v.SetDefault("feed_title", "Cynical circle")
}

// readConfig reads configFile, if it exists, and the environment.
// A missing file is not an error, the defaults are good enough for
// development.
func readConfig(configFile string) (*Config, error) {
	v := viper.New()
	setConfigDefaults(v)
	v.SetEnvPrefix("cynic")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := u.ExpandTildeInPath(configFile)
	if path != "" && u.PathExists(path) {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimSpace(cfg.APIBaseURL)
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = api.DefaultBaseURL
	}
	if cfg.StateTTL < 0 {
		return nil, fmt.Errorf("state_ttl can't be negative, is %s", cfg.StateTTL)
	}
	if cfg.MaxClients < 0 {
		return nil, fmt.Errorf("max_clients can't be negative, is %d", cfg.MaxClients)
	}
	return &cfg, nil
}

// IsAdmin returns true if userID can see /logs
func (c *Config) IsAdmin(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range c.AdminUserIDs {
		if strings.TrimSpace(id) == userID {
			return true
		}
	}
	return false
}

var errNoCookieKeys = errors.New("cookie_auth_key_hex and cookie_encr_key_hex are invalid or missing")

// cookieKeys decodes cookie keys from the config. In development,
// invalid keys are replaced with random ones, which means sessions
// don't survive a restart.
func cookieKeys(c *Config, production bool) (auth, encr []byte, err error) {
	auth, err1 := hex.DecodeString(c.CookieAuthKeyHex)
	encr, err2 := hex.DecodeString(c.CookieEncrKeyHex)
	if err1 == nil && err2 == nil {
		// verify auth/encr keys are correct
		_, err = securecookie.New(auth, encr).Encode("test", "value")
		if err == nil && len(auth) > 0 {
			return auth, encr, nil
		}
	}

	// for convenience print valid random values
	auth = securecookie.GenerateRandomKey(32)
	encr = securecookie.GenerateRandomKey(32)
	fmt.Printf("%s\nYou can use the following random values:\n", errNoCookieKeys)
	fmt.Printf("cookie_auth_key_hex: %s\ncookie_encr_key_hex: %s\n", hex.EncodeToString(auth), hex.EncodeToString(encr))
	if production {
		return nil, nil, errNoCookieKeys
	}
	return auth, encr, nil
}
