// Package config loads edunews settings from defaults, an optional YAML
// file and EDUNEWS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Built-in network names.
const (
	NetworkLocal  = "local"
	NetworkDevnet = "devnet"
	NetworkMemory = "memory"
)

// EnvPrefix is prepended to every environment variable, e.g. EDUNEWS_NETWORK.
const EnvPrefix = "EDUNEWS"

// MaxSS58Prefix is the largest address prefix SS58 can encode.
const MaxSS58Prefix = 16383

// Endpoints locates the three ledgers of a network.
//
// Supported schemes:
//
//	memory://<ledger>                  in-process, volatile
//	sqlite://<path>?ledger=<ledger>    in-process over a SQLite file
//	grpc://<host:port>/<ledger>        remote devnet node
type Endpoints struct {
	Issuance string `mapstructure:"issuance"`
	Registry string `mapstructure:"registry"`
	Identity string `mapstructure:"identity"`
}

// Timeouts bound network operations. Zero disables a bound.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Submit  time.Duration
}

// Config is the resolved configuration of one invocation.
type Config struct {
	Network    string
	Endpoints  Endpoints
	Timeouts   Timeouts
	DevnetPath string
	DevnetAddr string
	SS58Prefix uint16
	HTTPListen string
	Mnemonic   string
	ConfigFile string
}

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("network", NetworkLocal)
	v.SetDefault("timeouts.connect", 5*time.Second)
	v.SetDefault("timeouts.read", 10*time.Second)
	v.SetDefault("timeouts.submit", 60*time.Second)
	v.SetDefault("devnet.path", defaultDevnetPath())
	v.SetDefault("devnet.listen", "127.0.0.1:9944")
	v.SetDefault("ss58_prefix", 42)
	v.SetDefault("http.listen", "127.0.0.1:8080")
	v.SetDefault("mnemonic", "")
}

func defaultDevnetPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "edunews-devnet.db"
	}
	return filepath.Join(home, ".edunews", "devnet.db")
}

// Load resolves the configuration held by v.
//
// If path is non-empty that file must exist. Otherwise config.yaml is read
// from $HOME/.edunews or the working directory when present.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".edunews"))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	prefix := v.GetInt("ss58_prefix")
	if prefix < 0 || prefix > MaxSS58Prefix {
		return Config{}, fmt.Errorf("ss58_prefix %d out of range 0..%d", prefix, MaxSS58Prefix)
	}

	cfg := Config{
		Network: v.GetString("network"),
		Timeouts: Timeouts{
			Connect: v.GetDuration("timeouts.connect"),
			Read:    v.GetDuration("timeouts.read"),
			Submit:  v.GetDuration("timeouts.submit"),
		},
		DevnetPath: v.GetString("devnet.path"),
		DevnetAddr: v.GetString("devnet.listen"),
		SS58Prefix: uint16(prefix),
		HTTPListen: v.GetString("http.listen"),
		Mnemonic:   v.GetString("mnemonic"),
		ConfigFile: v.ConfigFileUsed(),
	}

	eps, err := resolveNetwork(v, cfg)
	if err != nil {
		return Config{}, err
	}
	cfg.Endpoints = eps
	return cfg, nil
}

// resolveNetwork returns the endpoints of the selected network. Networks
// declared in the config file override built-ins of the same name.
func resolveNetwork(v *viper.Viper, cfg Config) (Endpoints, error) {
	key := "networks." + cfg.Network
	if v.IsSet(key) {
		var eps Endpoints
		if err := v.UnmarshalKey(key, &eps); err != nil {
			return Endpoints{}, fmt.Errorf("network %q: %w", cfg.Network, err)
		}
		if eps.Issuance == "" || eps.Registry == "" || eps.Identity == "" {
			return Endpoints{}, fmt.Errorf("network %q: issuance, registry and identity endpoints are all required", cfg.Network)
		}
		return eps, nil
	}

	switch cfg.Network {
	case NetworkLocal:
		return SQLiteEndpoints(cfg.DevnetPath), nil
	case NetworkDevnet:
		return GRPCEndpoints(cfg.DevnetAddr), nil
	case NetworkMemory:
		return Endpoints{
			Issuance: "memory://issuance",
			Registry: "memory://registry",
			Identity: "memory://identity",
		}, nil
	default:
		return Endpoints{}, fmt.Errorf("unknown network %q (known: %s)", cfg.Network, strings.Join(knownNetworks(v), ", "))
	}
}

// SQLiteEndpoints places all three ledgers in one SQLite file.
func SQLiteEndpoints(path string) Endpoints {
	ep := func(name string) string { return "sqlite://" + path + "?ledger=" + name }
	return Endpoints{Issuance: ep("issuance"), Registry: ep("registry"), Identity: ep("identity")}
}

// GRPCEndpoints addresses three ledgers served by one devnet process.
func GRPCEndpoints(addr string) Endpoints {
	ep := func(name string) string { return "grpc://" + addr + "/" + name }
	return Endpoints{Issuance: ep("issuance"), Registry: ep("registry"), Identity: ep("identity")}
}

func knownNetworks(v *viper.Viper) []string {
	names := []string{NetworkLocal, NetworkDevnet, NetworkMemory}
	for name := range v.GetStringMap("networks") {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
