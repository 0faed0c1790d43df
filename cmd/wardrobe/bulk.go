package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/mutation"
	"github.com/mmcdole/wardrobe/internal/selection"
)

const mutationTimeout = 60 * time.Second

// targetFlags picks what a delete or analyze acts on: explicit IDs, or
// --all under the filter flags minus --exclude.
type targetFlags struct {
	all     bool
	exclude []string
	yes     bool
	filters *filterFlags
}

func addTargetFlags(cmd *cobra.Command) *targetFlags {
	t := &targetFlags{filters: addFilterFlags(cmd)}
	cmd.Flags().BoolVar(&t.all, "all", false, "act on every item matching the filter flags")
	cmd.Flags().StringSliceVar(&t.exclude, "exclude", nil, "with --all, leave these item IDs out (repeatable)")
	cmd.Flags().BoolVarP(&t.yes, "yes", "y", false, "do not ask for confirmation")
	return t
}

// resolve builds the selection and the filter it was made under
func (t *targetFlags) resolve(cmd *cobra.Command, ids []string) (selection.Selection, domain.ItemFilter, error) {
	filter, err := t.filters.filter(cmd)
	if err != nil {
		return selection.None(), domain.ItemFilter{}, err
	}

	switch {
	case t.all && len(ids) > 0:
		return selection.None(), filter, errors.New("give item IDs or --all, not both")
	case !t.all && len(t.exclude) > 0:
		return selection.None(), filter, errors.New("--exclude only applies with --all")
	case t.all:
		sel := selection.None().SelectAll()
		for _, id := range t.exclude {
			sel = sel.Toggle(id, false)
		}
		return sel, filter, nil
	}

	sel := selection.None()
	for _, id := range ids {
		sel = sel.Toggle(id, true)
	}
	if sel.IsEmpty() {
		return sel, filter, selection.ErrEmptySelection
	}
	return sel, filter, nil
}

// describeTargets renders the selection for a confirmation prompt
func describeTargets(sel selection.Selection, filter domain.ItemFilter) string {
	switch sel.Mode() {
	case selection.ModeAll:
		s := "every item in " + filter.Summary()
		if n := len(sel.ExcludedIDs()); n > 0 {
			s += fmt.Sprintf(" except %d", n)
		}
		return s
	default:
		ids := sel.SelectedIDs()
		if len(ids) == 1 {
			return "item " + ids[0]
		}
		return fmt.Sprintf("%d items", len(ids))
	}
}

// confirm asks before a destructive action. Without a terminal the caller
// must pass --yes.
func confirm(e *env, yes bool, prompt string) (bool, error) {
	if yes {
		return true, nil
	}
	if !isTerminal(e.stdin) {
		return false, errors.New("refusing to continue without --yes when stdin is not a terminal")
	}

	var ok bool
	err := huh.NewConfirm().
		Title(prompt).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// settle runs m through the coordinator and reports the outcome
func settle[R any](ctx context.Context, w io.Writer, c *core, m mutation.Mutation[R]) error {
	ctx, cancel := context.WithTimeout(ctx, mutationTimeout)
	defer cancel()

	out := mutation.Run(ctx, c.coord, m)
	if !out.OK() {
		return errors.New(out.Message)
	}

	fmt.Fprintf(w, "✓ %s\n", out.Message)
	for _, msg := range out.Errors {
		fmt.Fprintf(w, "  ✗ %s\n", msg)
	}
	return nil
}
