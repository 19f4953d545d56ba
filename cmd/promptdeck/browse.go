package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/promptdeck/pkg/client"
	"github.com/Sternrassler/promptdeck/pkg/pagination"
	"github.com/Sternrassler/promptdeck/pkg/records"
)

const browseHelp = "n next | p prev | /text search | / clear | r reload | add LABEL = VALUE | edit N LABEL = VALUE | rm N | q quit"

// table renders rows of one record kind.
type table[T any] struct {
	header []string
	row    func(T) []string
	id     func(T) string
}

var (
	promptTable = table[records.Prompt]{
		header: []string{"ID", "LABEL", "CONTENT"},
		row: func(p records.Prompt) []string {
			return []string{p.ID, p.Label, truncate(p.Content, 48)}
		},
		id: func(p records.Prompt) string { return p.ID },
	}
	variableTable = table[records.Variable]{
		header: []string{"ID", "LABEL", "VALUE"},
		row: func(v records.Variable) []string {
			return []string{v.ID, v.Label, truncate(v.Value, 48)}
		},
		id: func(v records.Variable) string { return v.ID },
	}
)

func newBrowseCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:       "browse prompts|variables",
		Short:     "Page through prompts or variables interactively",
		Long:      "Page through prompts or variables interactively.\n\nCommands: " + browseHelp,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(records.KindPrompts), string(records.KindVariables)},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			defer c.Close()

			hub := pagination.NewHub()
			opts := pagination.Options[records.Prompt]{Limit: a.cfg.Pager.PageLimit, Debounce: a.cfg.Pager.Debounce}
			in, out := cmd.InOrStdin(), cmd.OutOrStdout()
			if records.Kind(args[0]) == records.KindPrompts {
				ctrl := pagination.NewController(pagination.ResourceKind(records.KindPrompts), c.Prompts(), opts)
				defer ctrl.Close()
				b := &browser[records.Prompt]{ctrl: ctrl, hub: hub, client: c, kind: promptKind, table: promptTable}
				return b.run(cmd.Context(), in, out, search)
			}

			ctrl := pagination.NewController(pagination.ResourceKind(records.KindVariables), c.Variables(),
				pagination.Options[records.Variable]{Limit: opts.Limit, Debounce: opts.Debounce})
			defer ctrl.Close()
			b := &browser[records.Variable]{ctrl: ctrl, hub: hub, client: c, kind: variableKind, table: variableTable}
			return b.run(cmd.Context(), in, out, search)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "initial search term")
	cmd.Flags().String("server", "", "API base URL (default: client.base_url)")
	cmd.Flags().String("token", "", "API bearer token (default: client.token)")
	return cmd
}

// browser is the paging REPL of one record kind. Mutations go through hub,
// which clears the controller's pages once they have completed.
type browser[T any] struct {
	ctrl   *pagination.Controller[T]
	hub    *pagination.Hub
	client *client.Client
	kind   recordKind
	table  table[T]
}

// run reads commands until q or end of input.
func (b *browser[T]) run(ctx context.Context, in io.Reader, out io.Writer, search string) error {
	defer b.hub.Register(b.ctrl.Kind(), b.ctrl)()

	view, err := b.ctrl.ApplySearchTerm(ctx, search)
	render(out, view, err, b.table)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		verb, args, _ := strings.Cut(line, " ")

		switch {
		case line == "q" || line == "quit":
			return nil
		case line == "n" || line == "":
			view, err = b.ctrl.GoNext(ctx)
		case line == "p":
			view, err = b.ctrl.GoPrev(ctx)
		case strings.HasPrefix(line, "/"):
			view, err = b.ctrl.ApplySearchTerm(ctx, line[1:])
		case line == "r":
			b.hub.Invalidate(b.ctrl.Kind())
			view, err = b.ctrl.Load(ctx)
		case verb == "add" || verb == "edit" || verb == "rm":
			done, mutation, perr := b.mutation(view.Rows, verb, strings.TrimSpace(args))
			if perr != nil {
				fmt.Fprintf(out, "error: %v\n", perr)
				continue
			}
			if merr := b.hub.Mutate(ctx, b.ctrl.Kind(), mutation); merr != nil {
				fmt.Fprintf(out, "error: %v\n", merr)
			} else {
				fmt.Fprintln(out, done)
			}
			view, err = b.ctrl.Load(ctx)
		default:
			fmt.Fprintln(out, browseHelp)
			continue
		}
		render(out, view, err, b.table)
	}
}

// mutation parses an add, edit or rm command against the visible rows.
// Rows are numbered from 1 as rendered.
func (b *browser[T]) mutation(rows []T, verb, args string) (string, func(context.Context) error, error) {
	switch verb {
	case "add":
		label, value, err := labelValue(args)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("created %s %s", b.kind.name, label), func(ctx context.Context) error {
			_, err := b.kind.create(ctx, b.client, label, value)
			return err
		}, nil

	case "edit":
		n, rest, _ := strings.Cut(args, " ")
		row, err := rowAt(rows, n)
		if err != nil {
			return "", nil, err
		}
		label, value, err := labelValue(rest)
		if err != nil {
			return "", nil, err
		}
		id := b.table.id(row)
		return fmt.Sprintf("updated %s %s", b.kind.name, id), func(ctx context.Context) error {
			_, err := b.kind.update(ctx, b.client, id, label, value)
			return err
		}, nil

	default:
		row, err := rowAt(rows, args)
		if err != nil {
			return "", nil, err
		}
		id := b.table.id(row)
		return fmt.Sprintf("deleted %s %s", b.kind.name, id), func(ctx context.Context) error {
			return b.kind.remove(ctx, b.client, id)
		}, nil
	}
}

func rowAt[T any](rows []T, n string) (T, error) {
	var zero T
	i, err := strconv.Atoi(n)
	if err != nil || i < 1 || i > len(rows) {
		return zero, fmt.Errorf("no row %q on this page (1-%d)", n, len(rows))
	}
	return rows[i-1], nil
}

// labelValue splits "LABEL = VALUE".
func labelValue(s string) (string, string, error) {
	label, value, ok := strings.Cut(s, "=")
	label, value = strings.TrimSpace(label), strings.TrimSpace(value)
	if !ok || label == "" {
		return "", "", errors.New("expected LABEL = VALUE")
	}
	return label, value, nil
}

func render[T any](out io.Writer, view pagination.View[T], err error, t table[T]) {
	if err != nil && !errors.Is(err, pagination.ErrBusy) {
		fmt.Fprintf(out, "error: %v\n", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\t"+strings.Join(t.header, "\t"))
	for i, row := range view.Rows {
		fmt.Fprintf(tw, "%d\t%s\n", i+1, strings.Join(t.row(row), "\t"))
	}
	_ = tw.Flush()

	if len(view.Rows) == 0 {
		fmt.Fprintln(out, "(no results)")
	}
	fmt.Fprintln(out, pageFooter(view.Index, view.Pages, view.CanGoPrev, view.CanGoNext, view.SearchTerm))
}

func pageFooter(index, pages int, canPrev, canNext bool, term string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "page %d", index+1)
	if pages == 0 {
		b.Reset()
		b.WriteString("page -")
	}
	if canPrev {
		b.WriteString("  [p]rev")
	}
	if canNext {
		b.WriteString("  [n]ext")
	}
	if term != "" {
		fmt.Fprintf(&b, "  search=%q", term)
	}
	return b.String()
}

// truncate shortens s to n runes and flattens line breaks.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
