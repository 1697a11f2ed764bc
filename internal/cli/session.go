package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/roach88/metastore/internal/ident"
	"github.com/roach88/metastore/internal/metadata"
	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/store/dynamo"
	"github.com/roach88/metastore/internal/store/sqlite"
)

// session is what a command needs to run: an open store, the engine
// options derived from the global flags, a logger and the formatter.
type session struct {
	store     store.Store
	options   []metadata.Option
	logger    *slog.Logger
	formatter *OutputFormatter
	close     func() error
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// openSession opens the configured backend. Failures are reported through
// the formatter and returned as command errors.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	formatter := newFormatter(opts, cmd)
	logger := newLogger(opts, cmd.ErrOrStderr())

	options, err := engineOptions(opts, logger)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	st, closeFn, err := openStore(ctx, opts)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "failed to open store", err.Error())
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	formatter.VerboseLog("Using %s backend", opts.Backend)

	return &session{
		store:     st,
		options:   options,
		logger:    logger,
		formatter: formatter,
		close:     closeFn,
	}, nil
}

// Close releases the store.
func (s *session) Close() {
	if err := s.close(); err != nil {
		s.logger.Error("error closing store", "error", err)
	}
}

func (s *session) one(owner store.OwnerRef) *metadata.HasOne {
	return metadata.NewHasOne(s.store, owner, s.options...)
}

func (s *session) many(owner store.OwnerRef) *metadata.HasMany {
	return metadata.NewHasMany(s.store, owner, s.options...)
}

// storeFailed reports a backend error.
func (s *session) storeFailed(message string, err error) error {
	_ = s.formatter.Error(ErrCodeStore, message, err.Error())
	return WrapExitError(ExitCommandError, message, err)
}

// notApplied reports an operation the engine refused.
func (s *session) notApplied(code, message string) error {
	_ = s.formatter.Error(code, message, nil)
	return NewExitError(ExitFailure, message)
}

func openStore(ctx context.Context, opts *RootOptions) (store.Store, func() error, error) {
	switch opts.Backend {
	case "", "sqlite":
		if opts.Database == "" {
			return nil, nil, fmt.Errorf("--db is required for the sqlite backend")
		}
		var sqliteOpts []sqlite.Option
		if opts.Clock != nil {
			sqliteOpts = append(sqliteOpts, sqlite.WithClock(opts.Clock))
		}
		st, err := sqlite.Open(opts.Database, sqliteOpts...)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil

	case "dynamodb":
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		var dynamoOpts []dynamo.Option
		if opts.Clock != nil {
			dynamoOpts = append(dynamoOpts, dynamo.WithClock(opts.Clock))
		}
		st := dynamo.New(dynamodb.NewFromConfig(cfg), dynamo.Config{
			Table: opts.Table,
		}, dynamoOpts...)
		return st, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
}

func engineOptions(opts *RootOptions, logger *slog.Logger) ([]metadata.Option, error) {
	options := []metadata.Option{metadata.WithLogger(logger)}

	if opts.Timezone != "" {
		loc, err := time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", opts.Timezone, err)
		}
		options = append(options, metadata.WithLocation(loc))
	}

	ids, err := ident.New(ident.Format(opts.IDFormat))
	if err != nil {
		return nil, err
	}
	if opts.IDGenerator != nil {
		ids = opts.IDGenerator
	}
	options = append(options, metadata.WithIDGenerator(ids))

	if opts.NoIdentity {
		options = append(options, metadata.WithoutIdentityKey())
	} else if opts.IdentityKey != "" {
		options = append(options, metadata.WithIdentityKey(opts.IdentityKey))
	}
	return options, nil
}

// parseOwner reads an owner written as type:id.
func parseOwner(s string) (store.OwnerRef, error) {
	typ, id, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(typ) == "" || strings.TrimSpace(id) == "" {
		return store.OwnerRef{}, fmt.Errorf("invalid owner %q: expected type:id", s)
	}
	return store.OwnerRef{Type: typ, ID: id}, nil
}

// ownerArg parses the owner argument, reporting a malformed one.
func ownerArg(opts *RootOptions, cmd *cobra.Command, arg string) (store.OwnerRef, error) {
	owner, err := parseOwner(arg)
	if err != nil {
		_ = newFormatter(opts, cmd).Error(ErrCodeInvalidInput, err.Error(), nil)
		return store.OwnerRef{}, WrapExitError(ExitCommandError, "invalid owner", err)
	}
	return owner, nil
}
