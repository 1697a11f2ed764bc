package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/metastore/internal/ident"
)

// RootOptions holds global flags for all commands.
//
// Every flag can also be set through a METASTORE_ environment variable
// (METASTORE_IDENTITY_KEY for --identity-key) or a key of the --config file.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	Backend     string // "sqlite" | "dynamodb"
	Database    string
	Table       string
	IdentityKey string
	NoIdentity  bool
	IDFormat    string
	Timezone    string

	// IDGenerator allows overriding document id generation (for testing).
	// If nil, the generator follows IDFormat.
	IDGenerator ident.Generator

	// Clock allows overriding store timestamps (for testing).
	Clock func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidBackends defines the allowed storage backends.
var ValidBackends = []string{"sqlite", "dynamodb"}

// NewRootCommand creates the root command for the metastore CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metastore",
		Short: "Attribute documents for any owner",
		Long: `metastore attaches schemaless attribute documents to owners.

An owner is written as type:id (user:42). Commands work on the owner's single
attribute document unless --doc or --all selects its document collection.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, opts); err != nil {
				_ = newFormatter(opts, cmd).Error(ErrCodeConfig, "failed to load configuration", err.Error())
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			if !isValid(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if !isValid(ValidBackends, opts.Backend) {
				return fmt.Errorf("invalid backend %q: must be one of %v", opts.Backend, ValidBackends)
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.Backend, "backend", "sqlite", "storage backend (sqlite|dynamodb)")
	flags.StringVar(&opts.Database, "db", "", "path to SQLite database")
	flags.StringVar(&opts.Table, "table", "", "DynamoDB table name")
	flags.StringVar(&opts.IdentityKey, "identity-key", "", "payload key that exposes document ids (default \"id\")")
	flags.BoolVar(&opts.NoIdentity, "no-identity", false, "do not expose document ids in payloads")
	flags.StringVar(&opts.IDFormat, "id-format", string(ident.FormatULID), "document id format (ulid|uuidv7)")
	flags.StringVar(&opts.Timezone, "timezone", "UTC", "zone for document timestamps")

	// Add subcommands
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewForgetCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// loadConfig fills opts from flags, METASTORE_ environment variables and
// the config file, in that order of precedence.
func loadConfig(cmd *cobra.Command, opts *RootOptions) error {
	vip := viper.New()
	if err := vip.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	vip.SetEnvPrefix("METASTORE")
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	if path := vip.GetString("config"); path != "" {
		vip.SetConfigFile(path)
		if err := vip.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	opts.Verbose = vip.GetBool("verbose")
	opts.Format = vip.GetString("format")
	opts.ConfigFile = vip.GetString("config")
	opts.Backend = vip.GetString("backend")
	opts.Database = vip.GetString("db")
	opts.Table = vip.GetString("table")
	opts.IdentityKey = vip.GetString("identity-key")
	opts.NoIdentity = vip.GetBool("no-identity")
	opts.IDFormat = vip.GetString("id-format")
	opts.Timezone = vip.GetString("timezone")

	// serve's listen address may come from the environment or config file.
	if f := cmd.Flags().Lookup("addr"); f != nil && !f.Changed && vip.IsSet("addr") {
		if err := cmd.Flags().Set("addr", vip.GetString("addr")); err != nil {
			return err
		}
	}
	return nil
}

// isValid checks if v is one of the allowed values.
func isValid(allowed []string, v string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
