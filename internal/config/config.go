// Package config loads txindexd's configuration. Precedence is
// environment > file > defaults, following an lnd.conf-style loading
// scheme (jessevdk/go-flags for flags and INI parsing) layered with a
// reflection-based environment overlay using the APP__GROUP__FIELD
// convention.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	flags "github.com/jessevdk/go-flags"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host                  string `long:"host" default:"0.0.0.0"`
	Port                  int    `long:"port" default:"8080"`
	RequestBodyLimitBytes int    `long:"requestbodylimitbytes" default:"1048576"`
	Workers               int    `long:"workers" default:"0"`
	TLSEnabled            bool   `long:"tlsenabled"`
}

// AuthConfig controls the wallet-auth gate.
type AuthConfig struct {
	Enabled             bool     `long:"enabled" default:"true"`
	HeaderWalletAddress string   `long:"headerwalletaddress" default:"X-Wallet-Address"`
	HeaderWalletSig     string   `long:"headerwalletsignature" default:"X-Wallet-Signature"`
	HeaderNonce         string   `long:"headernonce" default:"X-Nonce"`
	NonceTTLSecs        int      `long:"noncettlsecs" default:"120"`
	BypassPaths         []string `long:"bypasspath" default:"/healthz" default:"/readyz" default:"/version" default:"/api/auth/nonce"`
	ProtectPrefixes     []string `long:"protectprefix" default:"/api"`
	AcceptSigB58        bool     `long:"acceptsignatureb58" default:"true"`
	AcceptSigB64        bool     `long:"acceptsignatureb64"`
	CanonicalizeMethod  string   `long:"canonicalizemethod" default:"upper"`
	CanonicalizePath    string   `long:"canonicalizepath" default:"as-is"`
	KVKeyPrefix         string   `long:"kvkeyprefix" default:"auth:nonce"`
}

// RateLimitConfig controls the per-connection token buckets.
type RateLimitConfig struct {
	Enabled              bool     `long:"enabled" default:"true"`
	IPMaxRequests        int      `long:"ipmaxrequests" default:"100"`
	IPWindowSecs         int      `long:"ipwindowsecs" default:"60"`
	WalletMaxRequests    int      `long:"walletmaxrequests" default:"200"`
	WalletWindowSecs     int      `long:"walletwindowsecs" default:"60"`
	RespectXForwardedFor bool     `long:"respectxforwardedfor"`
	WhitelistPaths       []string `long:"whitelistpath" default:"/healthz" default:"/readyz" default:"/version"`
}

// CacheConfig controls the cached query endpoint's response cache.
type CacheConfig struct {
	Enabled    bool   `long:"enabled" default:"true"`
	Backend    string `long:"backend" default:"memory"`
	TTLSecs    int    `long:"ttlsecs" default:"10"`
	MaxEntries int    `long:"maxentries" default:"1000"`
	ETagSalt   string `long:"etagsalt"`
}

// WSConfig controls the live subscription channel.
type WSConfig struct {
	Enabled                 bool   `long:"enabled" default:"true"`
	Path                    string `long:"path" default:"/ws/tx"`
	PingIntervalSecs        int    `long:"pingintervalsecs" default:"20"`
	IdleTimeoutSecs         int    `long:"idletimeoutsecs" default:"60"`
	MaxSubscriptionsPerConn int    `long:"maxsubscriptionsperconn" default:"10"`
	MaxClientMsgPerMin      int    `long:"maxclientmsgpermin" default:"30"`
	MaxEventsPerSec         int    `long:"maxeventspersec" default:"100"`
	ResumeCatchupLimit      int    `long:"resumecatchuplimit" default:"200"`
}

// KafkaConfig controls the broker consumer/producer.
type KafkaConfig struct {
	Brokers          string `long:"brokers" default:"127.0.0.1:9092"`
	GroupID          string `long:"groupid" default:"blockchain-api-consumer"`
	InputTopic       string `long:"inputtopic" default:"tx.raw"`
	DLQTopic         string `long:"dlqtopic" default:"tx.dlq"`
	MaxPollRecords   int    `long:"maxpollrecords" default:"100"`
	PollIntervalMs   int    `long:"pollintervalms" default:"200"`
	SessionTimeoutMs int    `long:"sessiontimeoutms" default:"10000"`
	MessageMaxBytes  int    `long:"messagemaxbytes" default:"1048576"`
	RetryBackoffMs   int    `long:"retrybackoffms" default:"200"`
	MaxRetries       int    `long:"maxretries" default:"5"`
}

// IngestConfig controls batching and fan-out behavior of the ingestion
// pipeline.
type IngestConfig struct {
	DBInsertBatchSize    int  `long:"dbinsertbatchsize" default:"100"`
	EmitWSEvents         bool `long:"emitwsevents" default:"true"`
	IdempotencyBySignature bool `long:"idempotencybysignature" default:"true"`
}

// PostgresConfig controls the transaction store connection.
type PostgresConfig struct {
	Enabled        bool   `long:"enabled" default:"true"`
	DSN            string `long:"dsn" default:"postgres://localhost:5432/txindexd?sslmode=disable"`
	MaxConnections int    `long:"maxconnections" default:"10"`
	ConnectTimeoutMs int  `long:"connecttimeoutms" default:"3000"`
}

// RedisConfig controls the KV adapter connection.
type RedisConfig struct {
	Enabled           bool   `long:"enabled" default:"true"`
	Addr              string `long:"addr" default:"127.0.0.1:6379"`
	ConnectTimeoutMs  int    `long:"connecttimeoutms" default:"1000"`
	CommandTimeoutMs  int    `long:"commandtimeoutms" default:"1000"`
}

// Config is the root configuration tree; group names match the
// recognized option groups documented for this service.
type Config struct {
	Server             ServerConfig     `group:"server" namespace:"server"`
	Auth               AuthConfig       `group:"auth" namespace:"auth"`
	RateLimit          RateLimitConfig  `group:"rate_limit" namespace:"ratelimit"`
	Cache              CacheConfig      `group:"cache" namespace:"cache"`
	WS                 WSConfig         `group:"ws" namespace:"ws"`
	Kafka              KafkaConfig      `group:"kafka" namespace:"kafka"`
	Ingest             IngestConfig     `group:"ingest" namespace:"ingest"`
	Postgres           PostgresConfig   `group:"postgres" namespace:"postgres"`
	Redis              RedisConfig      `group:"redis" namespace:"redis"`
	GracefulShutdownSecs int            `long:"gracefulshutdownsecs" default:"10"`
	RequestIDHeader    string           `long:"requestidheader" default:"X-Request-Id"`
}

// Load parses defaults, then an optional INI file at confPath (ignored if
// empty or missing), then overlays args (typically os.Args[1:]), and
// finally overlays environment variables of the form APP__GROUP__FIELD.
// Environment takes precedence over args and the file, which take
// precedence over the struct defaults.
func Load(confPath string, args []string) (*Config, error) {
	cfg := &Config{}

	parser := flags.NewParser(cfg, flags.Default)

	// Parsing an empty argument list still applies the struct `default`
	// tags, which is how the baseline defaults actually get populated
	// before the file and environment layers run.
	if _, err := parser.ParseArgs(nil); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}

	if confPath != "" {
		if _, err := os.Stat(confPath); err == nil {
			if err := flags.NewIniParser(parser).ParseFile(confPath); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if len(args) > 0 {
		if _, err := parser.ParseArgs(args); err != nil {
			return nil, fmt.Errorf("parsing flags: %w", err)
		}
	}

	// Applied last so the environment layer's precedence actually holds:
	// go-flags re-stamps every unspecified field's `default` tag on each
	// ParseArgs call, which would otherwise clobber an env-set value that
	// wasn't also passed as a CLI flag.
	if err := applyEnvOverrides(cfg, "APP"); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides walks cfg's group/namespace structure and, for every
// leaf field, checks for an environment variable named
// <prefix>__<GROUP>__<FIELD> (upper-cased), assigning it over whatever the
// file/defaults produced.
func applyEnvOverrides(cfg *Config, prefix string) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)

		if fv.Kind() == reflect.Struct {
			group := field.Tag.Get("namespace")
			if group == "" {
				group = field.Name
			}
			if err := applyEnvOverridesGroup(fv, prefix, strings.ToUpper(group)); err != nil {
				return err
			}
			continue
		}

		envKey := prefix + "__" + strings.ToUpper(field.Name)
		if err := assignEnv(fv, envKey); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverridesGroup(v reflect.Value, prefix, group string) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		envKey := prefix + "__" + group + "__" + strings.ToUpper(field.Name)
		if err := assignEnv(fv, envKey); err != nil {
			return err
		}
	}
	return nil
}

func assignEnv(fv reflect.Value, envKey string) error {
	raw, ok := os.LookupEnv(envKey)
	if !ok {
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", envKey, err)
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", envKey, err)
		}
		fv.SetInt(n)
	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(raw, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			fv.Set(reflect.ValueOf(parts))
		}
	default:
		return fmt.Errorf("%s: unsupported field kind %s", envKey, fv.Kind())
	}
	return nil
}
