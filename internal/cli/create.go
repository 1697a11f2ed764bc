package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/metastore/internal/value"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Many bool
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <owner> <payload|@file>",
		Short: "Create an owner's attributes",
		Long: `Create the owner's attribute document from a JSON object.

The payload is a JSON literal, or @path to read a .json, .yaml or .cue file.
Without --many the owner must not have attributes yet. With --many the
documents are added to the owner's collection: an object creates one
document, a list of objects creates one document per element.

Example:
  metastore create --db ./meta.db user:42 '{"theme":"dark"}'
  metastore create --db ./meta.db --many user:42 @languages.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.Many, "many", false, "add to the owner's document collection")

	return cmd
}

func runCreate(cmd *cobra.Command, opts *CreateOptions, ownerStr, payloadArg string) error {
	owner, err := ownerArg(opts.RootOptions, cmd, ownerStr)
	if err != nil {
		return err
	}
	input, err := readPayload(opts.RootOptions, cmd, payloadArg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.Many {
		many := s.many(owner)
		if obj, ok := input.(value.Object); ok {
			doc, err := many.Create(ctx, obj)
			if err != nil {
				return s.storeFailed("failed to create document", err)
			}
			payload, err := many.GetByID(ctx, doc.ID)
			if err != nil {
				return s.storeFailed("failed to load document", err)
			}
			return s.formatter.Success(payload)
		}

		docs, err := many.CreateMany(ctx, input)
		if err != nil {
			return s.storeFailed("failed to create documents", err)
		}
		if docs == nil {
			return s.notApplied(ErrCodeInvalidInput, "payload must be a non-empty list of non-empty objects")
		}
		out := make([]value.Object, 0, len(docs))
		for _, doc := range docs {
			payload, err := many.GetByID(ctx, doc.ID)
			if err != nil {
				return s.storeFailed("failed to load document", err)
			}
			out = append(out, payload)
		}
		return s.formatter.Success(out)
	}

	obj, ok := input.(value.Object)
	if !ok {
		return s.notApplied(ErrCodeInvalidInput, fmt.Sprintf("payload must be an object, got %s", value.Kind(input)))
	}
	one := s.one(owner)
	doc, err := one.Create(ctx, obj)
	if err != nil {
		return s.storeFailed("failed to create attributes", err)
	}
	if doc == nil {
		return s.notApplied(ErrCodeNotApplied, fmt.Sprintf("%s already has attributes", ownerStr))
	}
	payload, err := one.Get(ctx)
	if err != nil {
		return s.storeFailed("failed to load attributes", err)
	}
	return s.formatter.Success(payload)
}

// readPayload reads a payload argument: a JSON literal or @path.
func readPayload(opts *RootOptions, cmd *cobra.Command, arg string) (value.Value, error) {
	var (
		v   value.Value
		err error
	)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		v, err = LoadDocument(path)
	} else {
		v, err = value.Unmarshal([]byte(arg))
		if err != nil {
			err = &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("payload is not valid JSON: %v", err)}
		}
	}
	if err != nil {
		reportLoadError(newFormatter(opts, cmd), err)
		return nil, WrapExitError(ExitCommandError, "failed to read payload", err)
	}
	return v, nil
}

// reportLoadError prints a load failure, with the CUE position when known.
func reportLoadError(f *OutputFormatter, err error) {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return
	}
	var details interface{}
	if loadErr.Pos.IsValid() {
		details = loadErr.Pos.String()
	}
	_ = f.Error(loadErr.Code, loadErr.Message, details)
}
