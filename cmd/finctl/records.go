package main

import (
	"fmt"
	"strings"

	apperrors "github.com/guileen/finledger/errors"
	"github.com/guileen/finledger/protocol/api"
	"github.com/guileen/finledger/tableview"
	"github.com/guileen/finledger/types"
	"github.com/spf13/cobra"
)

func parseRecordType(s string) (types.RecordType, error) {
	rt, ok := types.ParseRecordType(s)
	if !ok {
		return "", apperrors.NewValidationErrorf("finctl", "unknown record type %q (want asset, debt, income or expense)", s)
	}
	return rt, nil
}

// parseAssignments turns key=value arguments into a record input. Values
// stay strings; the server coerces them by column type.
func parseAssignments(args []string) (map[string]any, error) {
	input := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, apperrors.NewValidationErrorf("finctl", "%q is not key=value", arg)
		}
		input[key] = value
	}
	return input, nil
}

func (a *app) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "add <type> key=value...",
		Short:   "Add a record",
		Example: "  finctl add debt name=Rent amount=950 due_date=2024-05-01 recurring=true",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := parseRecordType(args[0])
			if err != nil {
				return err
			}
			input, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			c, err := a.sessionClient()
			if err != nil {
				return err
			}
			rec, err := c.Submit(cmd.Context(), rt, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "added %s %v\n", rt, rec[types.ColumnID])
			return nil
		},
	}
}

// listOptions are the table controls of the list command.
type listOptions struct {
	filters []string
	rows    string
	page    int
	last    bool
	hide    []string
	move    []string
	remote  bool
}

// viewQuery converts the flags into the query the view engine applies.
func (o listOptions) viewQuery() (api.ViewQuery, error) {
	const op = "finctl.list"
	vq := api.ViewQuery{Filters: tableview.Filters{}, Hide: o.hide, Page: o.page, Last: o.last}

	for _, f := range o.filters {
		col, spec, found := strings.Cut(f, "=")
		if !found || col == "" {
			return vq, apperrors.NewValidationErrorf(op, "filter %q is not col=op:value", f)
		}
		vq.Filters[col] = api.ParseFilterSpec(spec)
	}
	for _, m := range o.move {
		from, to, found := strings.Cut(m, ":")
		if !found || from == "" || to == "" {
			return vq, apperrors.NewValidationErrorf(op, "move %q is not from:to", m)
		}
		vq.Move = append(vq.Move, api.ColumnMove{From: from, To: to})
	}
	if o.rows != "" {
		size, err := tableview.ParsePageSize(o.rows)
		if err != nil {
			return vq, apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
		}
		vq.Rows = size
	}
	if o.page < 0 {
		return vq, apperrors.NewValidationError(op, "page must be positive")
	}
	return vq, nil
}

func (a *app) listCommand() *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "Show records as a filtered, paged table",
		Example: "  finctl list debt --filter amount=between:100-500 --rows 20\n" +
			"  finctl list income --filter collection_date=after:2024-01-01 --hide currency --last",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := parseRecordType(args[0])
			if err != nil {
				return err
			}
			vq, err := opts.viewQuery()
			if err != nil {
				return err
			}
			c, err := a.sessionClient()
			if err != nil {
				return err
			}

			if opts.remote {
				page, err := c.View(cmd.Context(), rt, vq)
				if err != nil {
					return err
				}
				return printTable(a.out, page)
			}

			records, err := c.List(cmd.Context(), rt)
			if err != nil {
				return err
			}
			schema, _ := types.SchemaFor(rt)
			view := tableview.New(tableview.WithSchema(schema))
			if err := view.Load(records); err != nil {
				return err
			}
			if err := vq.Apply(view); err != nil {
				return err
			}
			page := view.Render()
			return printTable(a.out, &page)
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&opts.filters, "filter", "f", nil, "column filter as col=op:value, or col=value for the default operator (repeatable)")
	f.StringVarP(&opts.rows, "rows", "r", "", "rows per page: 5, 10, 20, 50, 100 or all")
	f.IntVarP(&opts.page, "page", "p", 0, "page to show")
	f.BoolVar(&opts.last, "last", false, "show the last page")
	f.StringArrayVar(&opts.hide, "hide", nil, "hide a column (repeatable)")
	f.StringArrayVar(&opts.move, "move", nil, "drop column a onto column b as a:b (repeatable)")
	f.BoolVar(&opts.remote, "remote", false, "let the server build the table")
	cmd.MarkFlagsMutuallyExclusive("page", "last")
	return cmd
}

func (a *app) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <type>",
		Short: "Show the columns of a record type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := parseRecordType(args[0])
			if err != nil {
				return err
			}
			c, err := a.sessionClient()
			if err != nil {
				return err
			}
			schema, err := c.Schema(cmd.Context(), rt)
			if err != nil {
				return err
			}
			return printSchema(a.out, schema)
		},
	}
}
