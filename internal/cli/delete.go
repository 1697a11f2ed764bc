package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/metastore/internal/value"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	DocumentID string
	All        bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <owner>",
		Short: "Delete an owner's attributes",
		Long: `Delete the owner's attribute document. With --doc one document of the
owner's collection is deleted; --all deletes the whole collection.

Example:
  metastore delete --db ./meta.db user:42
  metastore delete --db ./meta.db --all user:42`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.DocumentID, "doc", "", "document id within the owner's collection")
	cmd.Flags().BoolVar(&opts.All, "all", false, "delete every document of the owner's collection")
	cmd.MarkFlagsMutuallyExclusive("doc", "all")

	return cmd
}

func runDelete(cmd *cobra.Command, opts *DeleteOptions, ownerStr string) error {
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

	var (
		ok     bool
		target string
	)
	switch {
	case opts.All:
		ok, err = s.many(owner).DeleteAll(ctx)
		target = fmt.Sprintf("documents of %s", ownerStr)
	case opts.DocumentID != "":
		ok, err = s.many(owner).DeleteByID(ctx, opts.DocumentID)
		target = fmt.Sprintf("document %s of %s", opts.DocumentID, ownerStr)
	default:
		ok, err = s.one(owner).Delete(ctx)
		target = fmt.Sprintf("attributes of %s", ownerStr)
	}
	if err != nil {
		return s.storeFailed("failed to delete", err)
	}
	if !ok {
		return s.notApplied(ErrCodeNotFound, fmt.Sprintf("no %s to delete", target))
	}
	s.logger.Debug("deleted", "owner", owner.String(), "target", target)
	return s.formatter.Success(value.NewObject(value.O("deleted", value.Bool(true))))
}
