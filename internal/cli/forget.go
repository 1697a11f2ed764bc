package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ForgetOptions holds flags for the forget command.
type ForgetOptions struct {
	*RootOptions
	DocumentID string
}

// NewForgetCommand creates the forget command.
func NewForgetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ForgetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "forget <owner> <key>...",
		Short: "Remove attribute keys",
		Long: `Remove keys from the owner's attributes. A dotted key (prefs.theme)
removes a nested entry. The document itself is kept.

Example:
  metastore forget --db ./meta.db user:42 theme
  metastore forget --db ./meta.db --doc 01HF... user:42 prefs.theme level`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForget(cmd, opts, args[0], args[1:])
		},
	}

	cmd.Flags().StringVar(&opts.DocumentID, "doc", "", "document id within the owner's collection")

	return cmd
}

func runForget(cmd *cobra.Command, opts *ForgetOptions, ownerStr string, keys []string) error {
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

	if opts.DocumentID != "" {
		many := s.many(owner)
		ok, err := many.ClearKeysByID(ctx, opts.DocumentID, keys...)
		if err != nil {
			return s.storeFailed("failed to update document", err)
		}
		if !ok {
			return s.notApplied(ErrCodeNotApplied, fmt.Sprintf("keys %s not removed from document %s", strings.Join(keys, ", "), opts.DocumentID))
		}
		payload, err := many.GetByID(ctx, opts.DocumentID)
		if err != nil {
			return s.storeFailed("failed to load document", err)
		}
		return s.formatter.Success(payload)
	}

	one := s.one(owner)
	ok, err := one.ClearKeys(ctx, keys...)
	if err != nil {
		return s.storeFailed("failed to update attributes", err)
	}
	if !ok {
		return s.notApplied(ErrCodeNotApplied, fmt.Sprintf("keys %s not removed for %s", strings.Join(keys, ", "), ownerStr))
	}
	payload, err := one.Get(ctx)
	if err != nil {
		return s.storeFailed("failed to load attributes", err)
	}
	return s.formatter.Success(payload)
}
