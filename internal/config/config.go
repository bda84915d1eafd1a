// Package config loads settings shared by the shooter's commands. Sources are
// applied in order, later ones winning: built-in defaults, a .env file (a
// missing file is fine), SPACESHOOTER_* environment variables, then flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrInvalid is returned for values that parse but make no sense.
var ErrInvalid = errors.New("config: invalid value")

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "SPACESHOOTER_"

// Config holds every setting the commands use.
type Config struct {
	SyncAddr   string // syncd listen address
	SyncURL    string // websocket URL clients dial
	Membership string // presence, list or both

	Width          int
	Height         int
	InitialBullets int
	Seed           int64

	Name    string // pilot name
	Bots    int    // scripted pilots started by spectate and headless-report
	Verbose bool
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		SyncAddr:       ":6020",
		SyncURL:        "ws://localhost:6020/sync",
		Membership:     "presence",
		Width:          1280,
		Height:         720,
		InitialBullets: 50,
		Seed:           1,
		Bots:           4,
	}
}

// ArenaMembership is the roster source an arena should use: pilots may
// announce both ways, but an arena listens to one.
func (c Config) ArenaMembership() string {
	if c.Membership == "both" {
		return "presence"
	}
	return c.Membership
}

// Validate reports the first invalid setting, wrapped around ErrInvalid.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: arena size %dx%d", ErrInvalid, c.Width, c.Height)
	case c.InitialBullets < 0:
		return fmt.Errorf("%w: bullets %d", ErrInvalid, c.InitialBullets)
	case c.Bots < 0:
		return fmt.Errorf("%w: bots %d", ErrInvalid, c.Bots)
	}
	switch c.Membership {
	case "presence", "list", "both":
	default:
		return fmt.Errorf("%w: membership %q (want presence, list or both)", ErrInvalid, c.Membership)
	}
	return nil
}

// Load reads ./.env and the process environment, then parses args. Each
// extra function may register command-specific flags on the same set.
func Load(name string, args []string, extra ...func(*flag.FlagSet)) (Config, error) {
	return LoadFrom(name, args, ".env", os.LookupEnv, extra...)
}

// LoadFrom is Load with an explicit .env path and environment lookup.
func LoadFrom(name string, args []string, envFile string, lookup func(string) (string, bool), extra ...func(*flag.FlagSet)) (Config, error) {
	cfg := Defaults()

	file := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			file = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return cfg, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	get := func(key string) (string, bool) {
		key = EnvPrefix + key
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}
	if err := cfg.applyEnv(get); err != nil {
		return cfg, err
	}

	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.RegisterFlags(fset)
	for _, register := range extra {
		register(fset)
	}
	if err := fset.Parse(args); err != nil {
		return cfg, err
	}
	cfg.Membership = strings.ToLower(cfg.Membership)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(get func(string) (string, bool)) error {
	strs := map[string]*string{
		"SYNC_ADDR":  &c.SyncAddr,
		"SYNC_URL":   &c.SyncURL,
		"MEMBERSHIP": &c.Membership,
		"NAME":       &c.Name,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	ints := map[string]*int{
		"WIDTH":   &c.Width,
		"HEIGHT":  &c.Height,
		"BULLETS": &c.InitialBullets,
		"BOTS":    &c.Bots,
	}
	for key, dst := range ints {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s=%q", ErrInvalid, EnvPrefix, key, v)
			}
			*dst = n
		}
	}
	if v, ok := get("SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sSEED=%q", ErrInvalid, EnvPrefix, v)
		}
		c.Seed = n
	}
	if v, ok := get("VERBOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sVERBOSE=%q", ErrInvalid, EnvPrefix, v)
		}
		c.Verbose = b
	}
	return nil
}

// RegisterFlags binds every setting to set, using the current values as defaults.
func (c *Config) RegisterFlags(set *flag.FlagSet) {
	set.StringVar(&c.SyncAddr, "addr", c.SyncAddr, "syncd listen address")
	set.StringVar(&c.SyncURL, "url", c.SyncURL, "datasync websocket URL")
	set.StringVar(&c.Membership, "membership", c.Membership, "roster source: presence, list or both")
	set.IntVar(&c.Width, "width", c.Width, "arena width in px")
	set.IntVar(&c.Height, "height", c.Height, "arena height in px")
	set.IntVar(&c.InitialBullets, "bullets", c.InitialBullets, "bullet pool prefill")
	set.Int64Var(&c.Seed, "seed", c.Seed, "spawn and bot RNG seed")
	set.StringVar(&c.Name, "name", c.Name, "pilot name")
	set.IntVar(&c.Bots, "bots", c.Bots, "number of scripted pilots")
	set.BoolVar(&c.Verbose, "verbose", c.Verbose, "verbose simulation log")
}
