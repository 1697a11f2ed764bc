package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SetOptions holds flags for the set command.
type SetOptions struct {
	*RootOptions
	DocumentID string
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set <owner> <key> <value>",
		Short: "Set one attribute",
		Long: `Set one key of the owner's attributes, creating the document if needed.

The value is parsed as JSON when it is valid JSON and taken as a string
otherwise. With --doc the key is set on an existing document of the owner's
collection.

Example:
  metastore set --db ./meta.db user:42 theme dark
  metastore set --db ./meta.db user:42 limits '{"daily":10}'
  metastore set --db ./meta.db --doc 01HF... user:42 level 3`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, opts, args[0], args[1], args[2])
		},
	}

	cmd.Flags().StringVar(&opts.DocumentID, "doc", "", "document id within the owner's collection")

	return cmd
}

func runSet(cmd *cobra.Command, opts *SetOptions, ownerStr, key, raw string) error {
	owner, err := ownerArg(opts.RootOptions, cmd, ownerStr)
	if err != nil {
		return err
	}
	v := ParseArg(raw)

	ctx := cmd.Context()
	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.DocumentID != "" {
		many := s.many(owner)
		ok, err := many.AddKeyByID(ctx, opts.DocumentID, key, v)
		if err != nil {
			return s.storeFailed("failed to update document", err)
		}
		if !ok {
			return s.notApplied(ErrCodeNotApplied, fmt.Sprintf("key %q not set on document %s", key, opts.DocumentID))
		}
		s.logger.Debug("key set", "owner", owner.String(), "document", opts.DocumentID, "key", key)
		payload, err := many.GetByID(ctx, opts.DocumentID)
		if err != nil {
			return s.storeFailed("failed to load document", err)
		}
		return s.formatter.Success(payload)
	}

	one := s.one(owner)
	ok, err := one.AddKey(ctx, key, v)
	if err != nil {
		return s.storeFailed("failed to update attributes", err)
	}
	if !ok {
		return s.notApplied(ErrCodeNotApplied, fmt.Sprintf("key %q not set for %s", key, ownerStr))
	}
	s.logger.Debug("key set", "owner", owner.String(), "key", key)
	payload, err := one.Get(ctx)
	if err != nil {
		return s.storeFailed("failed to load attributes", err)
	}
	return s.formatter.Success(payload)
}
