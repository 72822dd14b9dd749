package config

import (
	"flag"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"
)

// EnvPrefix namespaces environment variables: NORMS_DB_DRIVER, NORMS_HTTP_ADDR...
const EnvPrefix = "NORMS"

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	DBDriver string
	DBDSN    string

	AuthSecret      string
	EnableLocalAuth bool
	CORSOrigins     []string

	LogLevel string

	PrimaryRegion   string
	SecondaryRegion string
	TransitMinAge   int
	ReportPrefix    string
	ExemptRole      string

	IQTablePatterns []string // empty keeps the scoring defaults
	ProxyRoute      string
	MatrixItems     int
}

// Register binds the shared keys onto fs. Commands add their own flags
// before parsing.
func Register(fs *flag.FlagSet, c *Config) {
	fs.String("config", "", "config file (optional), key value format")
	fs.StringVar(&c.HTTPAddr, "http-addr", ":8080", "HTTP listen address")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	fs.StringVar(&c.DBDriver, "db-driver", "sqlite", "database driver: sqlite|postgres")
	fs.StringVar(&c.DBDSN, "db-dsn", "", "database DSN (driver default when empty)")
	fs.StringVar(&c.AuthSecret, "auth-hmac-secret", "supersecret-dev-key", "HMAC secret for access tokens")
	fs.BoolVar(&c.EnableLocalAuth, "enable-local-auth", true, "mount POST /auth/login")
	fs.Func("cors-origins", "comma separated allowed origins", func(v string) error {
		c.CORSOrigins = splitCSV(v)
		return nil
	})
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.PrimaryRegion, "primary-region", "Ecuador", "region preferred by table selection")
	fs.StringVar(&c.SecondaryRegion, "secondary-region", "Latinoamérica", "fallback region for table selection")
	fs.IntVar(&c.TransitMinAge, "transit-min-age", 18, "legal minimum age for transit evaluations")
	fs.StringVar(&c.ReportPrefix, "report-prefix", "EVAL", "prefix of generated report numbers")
	fs.StringVar(&c.ExemptRole, "exempt-role", "external_professional", "role that never consumes stock")
	fs.Func("iq-table-patterns", "comma separated name patterns of the IQ conversion table", func(v string) error {
		c.IQTablePatterns = splitCSV(v)
		return nil
	})
	fs.StringVar(&c.ProxyRoute, "proxy-route", "route_c", "multi-route modality whose rows score the route total")
	fs.IntVar(&c.MatrixItems, "matrix-items", 25, "item count of the matrix reasoning test")
}

// Parse loads .env when present, then resolves flags, NORMS_* variables and
// the optional config file, in that order of precedence.
func Parse(fs *flag.FlagSet, c *Config, args []string) error {
	_ = godotenv.Load()
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{"http://localhost:3000"}
	}
	return errors.Wrap(ff.Parse(fs, args, Options()...), "config")
}

// Options are the ff options shared by every command, including ffcli
// subcommand trees.
func Options() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(EnvPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	}
}

// Load is Register and Parse on a fresh flag set.
func Load(name string, args []string) (Config, error) {
	var c Config
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	Register(fs, &c)
	if err := Parse(fs, &c, args); err != nil {
		return Config{}, err
	}
	return c, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
