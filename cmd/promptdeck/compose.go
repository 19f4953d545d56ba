package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/promptdeck/pkg/client"
	"github.com/Sternrassler/promptdeck/pkg/editor"
	"github.com/Sternrassler/promptdeck/pkg/pagination"
	"github.com/Sternrassler/promptdeck/pkg/records"
)

const composeHelp = `Lines without a leading ":" are typed at the caret; "{{" opens the variable picker.
  :1..:N      insert the N-th listed variable
  :n :p       next / previous variable page
  :esc        close the picker
  :bs [N]     backspace N runes (default 1)
  :render     show the text with variables expanded
  :save LABEL save the text as a new prompt
  :q          quit`

// pickerSettleTimeout bounds how long compose waits for the picker list.
const pickerSettleTimeout = 5 * time.Second

func newComposeCmd(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Write a prompt with the inline variable picker",
		Long:  "Write a prompt with the inline variable picker.\n\n" + composeHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			defer c.Close()

			initial := ""
			if from != "" {
				if initial, err = c.FetchPromptContent(ctx, from, false); err != nil {
					return err
				}
			}

			changed := make(chan struct{}, 1)
			vars := pagination.NewController(pagination.ResourceKind(records.KindVariables), c.Variables(),
				pagination.Options[records.Variable]{
					Limit:    a.cfg.Pager.PageLimit,
					Debounce: a.cfg.Pager.Debounce,
					AutoLoad: true,
					OnChange: func(pagination.View[records.Variable]) {
						select {
						case changed <- struct{}{}:
						default:
						}
					},
				})
			defer vars.Close()

			s := &composer{
				client:  c,
				vars:    vars,
				picker:  editor.NewPicker(editor.NewBuffer(initial), vars),
				changed: changed,
				out:     cmd.OutOrStdout(),
			}
			return s.run(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start from the content of this prompt ID")
	cmd.Flags().String("server", "", "API base URL (default: client.base_url)")
	cmd.Flags().String("token", "", "API bearer token (default: client.token)")
	return cmd
}

type composer struct {
	client  *client.Client
	vars    *pagination.Controller[records.Variable]
	picker  *editor.Picker
	changed chan struct{}
	out     io.Writer
}

func (s *composer) run(ctx context.Context, in io.Reader) error {
	s.show(ctx)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, ":") {
			s.picker.Type(line)
			s.show(ctx)
			continue
		}

		cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
		switch cmd {
		case "q", "quit":
			fmt.Fprintln(s.out, s.picker.Buffer().Text())
			return nil
		case "n":
			s.report(s.picker.Next(ctx))
		case "p":
			s.report(s.picker.Prev(ctx))
		case "esc":
			s.picker.Cancel()
		case "bs":
			n := 1
			if arg != "" {
				var err error
				if n, err = strconv.Atoi(arg); err != nil || n < 1 {
					fmt.Fprintln(s.out, "usage: :bs [N]")
					continue
				}
			}
			for range n {
				s.picker.Backspace()
			}
		case "render":
			s.render(ctx)
			continue
		case "save":
			s.save(ctx, strings.TrimSpace(arg))
			continue
		default:
			i, err := strconv.Atoi(cmd)
			if err != nil {
				fmt.Fprintln(s.out, composeHelp)
				continue
			}
			if err := s.picker.Choose(i - 1); err != nil {
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
		}
		s.show(ctx)
	}
}

// show prints the buffer with a caret marker and, while the picker is open,
// the variables matching what was typed after the trigger.
func (s *composer) show(ctx context.Context) {
	buf := s.picker.Buffer()
	text := []rune(buf.Text())
	caret := buf.Caret()
	fmt.Fprintf(s.out, "text: %s|%s\n", string(text[:caret]), string(text[caret:]))

	if !s.picker.IsOpen() {
		return
	}
	view := s.settle(ctx, buf.Query())
	if view.Err != nil {
		fmt.Fprintf(s.out, "error: %v\n", view.Err)
		s.vars.DismissError()
	}
	for i, v := range view.Rows {
		fmt.Fprintf(s.out, "  :%d  %s = %s\n", i+1, v.Label, truncate(v.Value, 40))
	}
	if len(view.Rows) == 0 {
		fmt.Fprintln(s.out, "  (no matching variables)")
	}
	fmt.Fprintln(s.out, "  "+pageFooter(view.Index, view.Pages, view.CanGoPrev, view.CanGoNext, view.SearchTerm))
}

// settle applies the pending search term and waits until the picker list
// shows a loaded page for it.
func (s *composer) settle(ctx context.Context, query string) pagination.View[records.Variable] {
	s.vars.FlushSearchTerm()
	want := pagination.BuildKey(s.vars.Kind(), query).Term

	timeout := time.NewTimer(pickerSettleTimeout)
	defer timeout.Stop()
	for {
		v := s.vars.View()
		if v.SearchTerm == want && !v.IsLoading && (v.Pages > 0 || v.Err != nil) {
			return v
		}
		select {
		case <-s.changed:
		case <-timeout.C:
			return v
		case <-ctx.Done():
			return v
		}
	}
}

func (s *composer) report(_ pagination.View[records.Variable], err error) {
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
}

func (s *composer) render(ctx context.Context) {
	all, err := s.client.FetchAllVariables(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	values := make(map[string]string, len(all))
	for _, v := range all {
		values[v.Label] = v.Value
	}
	fmt.Fprintln(s.out, editor.Render(s.picker.Buffer().Text(), values))
}

func (s *composer) save(ctx context.Context, label string) {
	if label == "" {
		fmt.Fprintln(s.out, "usage: :save LABEL")
		return
	}
	p, err := s.client.CreatePrompt(ctx, label, s.picker.Buffer().Text())
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "saved prompt %s (%s)\n", p.Label, p.ID)
}
