package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/metastore/internal/value"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Many bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <owner> <file>",
		Short: "Replace an owner's attributes from a file",
		Long: `Replace the owner's attributes with the contents of a .json, .yaml or .cue
file, creating the document if needed.

With --many the file holds a list of objects and the owner's whole collection
is replaced by one document per element; an empty list deletes the
collection. A file of the wrong shape leaves the stored documents untouched.

Example:
  metastore sync --db ./meta.db user:42 settings.yaml
  metastore sync --db ./meta.db --many user:42 languages.cue`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.Many, "many", false, "replace the owner's document collection")

	return cmd
}

func runSync(cmd *cobra.Command, opts *SyncOptions, ownerStr, path string) error {
	owner, err := ownerArg(opts.RootOptions, cmd, ownerStr)
	if err != nil {
		return err
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	formatter.VerboseLog("Loading %s", path)
	input, err := LoadDocument(path)
	if err != nil {
		reportLoadError(formatter, err)
		return WrapExitError(ExitCommandError, "failed to load document", err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.Many {
		many := s.many(owner)
		ok, err := many.Sync(ctx, input)
		if err != nil {
			return s.storeFailed("failed to sync documents", err)
		}
		if !ok {
			return s.notApplied(ErrCodeInvalidInput, fmt.Sprintf("%s must hold a list of non-empty objects", path))
		}
		docs, err := many.All(ctx)
		if err != nil {
			return s.storeFailed("failed to list documents", err)
		}
		return s.formatter.Success(docs)
	}

	obj, ok := input.(value.Object)
	if !ok {
		return s.notApplied(ErrCodeInvalidInput, fmt.Sprintf("%s must hold an object, got %s", path, value.Kind(input)))
	}
	one := s.one(owner)
	ok, err = one.Sync(ctx, obj)
	if err != nil {
		return s.storeFailed("failed to sync attributes", err)
	}
	if !ok {
		return s.notApplied(ErrCodeNotApplied, fmt.Sprintf("attributes of %s not synced", ownerStr))
	}
	payload, err := one.Get(ctx)
	if err != nil {
		return s.storeFailed("failed to load attributes", err)
	}
	return s.formatter.Success(payload)
}
