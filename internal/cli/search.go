package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/metastore/internal/value"
)

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <owner> <term>",
		Short: "Find documents containing a value",
		Long: `Print the owner's documents with a top-level value matching the term.
Nested objects and array elements are not searched.

A term that is valid JSON is matched by value (3 matches the integer 3);
anything else is matched as a string. A string term matches any string
value containing it; matching is case-sensitive.

Example:
  metastore search --db ./meta.db user:42 Arabic
  metastore search --db ./meta.db user:42 3 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, rootOpts, args[0], args[1])
		},
	}

	return cmd
}

func runSearch(cmd *cobra.Command, opts *RootOptions, ownerStr, term string) error {
	owner, err := ownerArg(opts, cmd, ownerStr)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	found, err := s.many(owner).Search(ctx, ParseArg(term))
	if err != nil {
		return s.storeFailed("search failed", err)
	}
	if found == nil {
		found = []value.Object{}
	}
	s.formatter.VerboseLog("%d document(s) match", len(found))
	return s.formatter.Success(found)
}
