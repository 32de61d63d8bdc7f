package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/fleetcore-io/fleetcore/internal/apiclient"
	"github.com/fleetcore-io/fleetcore/internal/projection"
	"github.com/fleetcore-io/fleetcore/internal/session"
	"github.com/fleetcore-io/fleetcore/internal/synchronizer"
	"github.com/fleetcore-io/fleetcore/internal/views"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputCSV   = "csv"
)

var (
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

// PrintError reports err on w, with a hint for errors a user can act on.
func PrintError(w io.Writer, err error) {
	var (
		authErr *session.AuthError
		reqErr  *apiclient.RequestError
	)
	switch {
	case errors.As(err, &authErr), apiclient.IsUnauthorized(err):
		red.Fprintf(w, "Error: %v\n", err)
		fmt.Fprintln(w, "Run 'fleetctl login' to sign in.")
	case errors.As(err, &reqErr):
		red.Fprintf(w, "Error: %s\n", reqErr.Message)
	default:
		red.Fprintf(w, "Error: %v\n", err)
	}
}

func success(cmd *cobra.Command, format string, args ...any) {
	green.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true

	table.AddRow(toAny(headers)...)
	for _, r := range rows {
		table.AddRow(toAny(r)...)
	}
	fmt.Fprintln(w, table)
}

func toAny(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// listFlags are shared by every list and export command.
type listFlags struct {
	search string
	sort   string
	order  string
	output string
}

func (lf *listFlags) addQueryFlags(cmd *cobra.Command, sortFields []string, def projection.Query) {
	fs := cmd.Flags()
	fs.StringVar(&lf.search, "search", "", "Only rows containing this text, ignoring case.")
	fs.StringVar(&lf.sort, "sort", def.Sort, fmt.Sprintf("Sort field, one of %v.", sortFields))
	fs.StringVar(&lf.order, "order", string(def.Order), "Sort order, asc or desc.")
}

func (lf *listFlags) addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&lf.output, "output", "o", outputTable, "Output format: table, json or csv.")
}

// applyQuery sets the flags on l. Unset sort flags keep the list defaults.
func applyQuery[T any](l *views.List[T], lf *listFlags) error {
	q := l.Query()
	q.Search = lf.search
	if lf.sort != "" {
		q.Sort = lf.sort
	}
	if lf.order != "" {
		order, err := projection.ParseOrder(lf.order)
		if err != nil {
			return err
		}
		q.Order = order
	}
	return l.SetQuery(q)
}

// loadList applies the query flags to l and waits for its first fetch.
func loadList[T any](ctx context.Context, l *views.List[T], lf *listFlags) error {
	if err := applyQuery(l, lf); err != nil {
		return err
	}
	l.Mount(nil)
	return settle(ctx, l)
}

type syncer interface {
	Sync(ctx context.Context) (synchronizer.Status, error)
}

// settle waits for pending fetches and turns a failed fetch into an error.
func settle(ctx context.Context, s syncer) error {
	st, err := s.Sync(ctx)
	if err != nil {
		return err
	}
	if st.State == synchronizer.StateError {
		return st.Err
	}
	return nil
}

func printList[T any](w io.Writer, l *views.List[T], output string) error {
	switch output {
	case outputTable:
		printTable(w, l.Headers(), l.Table())
		return nil
	case outputJSON:
		return printJSON(w, l.Rows())
	case outputCSV:
		return l.Export(w)
	}
	return fmt.Errorf("unknown output format %q: want table, json or csv", output)
}
