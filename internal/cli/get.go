package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	DocumentID string
	All        bool
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <owner> [key...]",
		Short: "Print an owner's attributes",
		Long: `Print the owner's attribute document, or only the listed keys.

With --doc the document is taken from the owner's collection; --all prints
every document of the collection in creation order.

Example:
  metastore get --db ./meta.db user:42
  metastore get --db ./meta.db user:42 theme locale
  metastore get --db ./meta.db --doc 01HF... user:42
  metastore get --db ./meta.db --all user:42 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, opts, args[0], args[1:])
		},
	}

	cmd.Flags().StringVar(&opts.DocumentID, "doc", "", "document id within the owner's collection")
	cmd.Flags().BoolVar(&opts.All, "all", false, "print every document of the owner's collection")
	cmd.MarkFlagsMutuallyExclusive("doc", "all")

	return cmd
}

func runGet(cmd *cobra.Command, opts *GetOptions, ownerStr string, keys []string) error {
	owner, err := ownerArg(opts.RootOptions, cmd, ownerStr)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	switch {
	case opts.All:
		docs, err := s.many(owner).All(ctx)
		if err != nil {
			return s.storeFailed("failed to list documents", err)
		}
		return s.formatter.Success(docs)

	case opts.DocumentID != "":
		many := s.many(owner)
		ok, err := many.ExistsByID(ctx, opts.DocumentID)
		if err != nil {
			return s.storeFailed("failed to load document", err)
		}
		if !ok {
			return s.notApplied(ErrCodeNotFound, fmt.Sprintf("document %s not found for %s", opts.DocumentID, ownerStr))
		}
		payload, err := many.GetByID(ctx, opts.DocumentID, keys...)
		if err != nil {
			return s.storeFailed("failed to load document", err)
		}
		return s.formatter.Success(payload)

	default:
		one := s.one(owner)
		ok, err := one.Exists(ctx)
		if err != nil {
			return s.storeFailed("failed to load attributes", err)
		}
		if !ok {
			return s.notApplied(ErrCodeNotFound, fmt.Sprintf("no attributes for %s", ownerStr))
		}
		payload, err := one.Get(ctx, keys...)
		if err != nil {
			return s.storeFailed("failed to load attributes", err)
		}
		return s.formatter.Success(payload)
	}
}
