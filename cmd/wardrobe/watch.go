package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/mutation"
	"github.com/mmcdole/wardrobe/internal/poll"
	"github.com/mmcdole/wardrobe/internal/tui/styles"
)

const watchCommandLong = `Poll one page of items and print a summary after every fetch.

The page is refetched quickly while any item on it is still processing and
slowly once everything has settled. Press enter to refetch immediately.`

// NewWatchCmd creates the watch command.
func NewWatchCmd(e *env) *cobra.Command {
	var page, pageSize int
	var untilReady bool

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow processing progress of a page",
		Long:  watchCommandLong,
		Args:  cobra.NoArgs,
	}
	filters := addFilterFlags(watchCmd)

	watchCmd.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := e.open()
		if err != nil {
			return err
		}
		filter, err := filters.filter(cmd)
		if err != nil {
			return err
		}
		if pageSize <= 0 {
			pageSize = e.cfg.List.PageSize
		}
		key := domain.NewPageKey(filter, max(page, 1), pageSize)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		poller := poll.NewPoller(c.sched, func(ctx context.Context) (domain.Page, error) {
			p, _, err := c.catalog.FetchPage(ctx, key)
			return p, err
		}, e.logger)

		go kickOnEnter(ctx, e.stdin, poller)

		w := cmd.OutOrStdout()
		for res := range poller.Start(ctx) {
			printPollResult(w, res)
			if untilReady && res.Err == nil && !res.Page.HasProcessing() {
				return nil
			}
		}
		return nil
	}

	watchCmd.Flags().IntVarP(&page, "page", "p", 1, "page number (1-based)")
	watchCmd.Flags().IntVarP(&pageSize, "page-size", "n", 0, "items per page (default from config)")
	watchCmd.Flags().BoolVar(&untilReady, "until-ready", false, "exit once nothing on the page is processing")
	return watchCmd
}

func kickOnEnter(ctx context.Context, r io.Reader, p *poll.Poller) {
	if r == nil {
		return
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		p.Kick()
	}
}

func printPollResult(w io.Writer, res poll.Result) {
	stamp := res.Fetch.Format("15:04:05")
	if res.Err != nil {
		fmt.Fprintf(w, "%s %s (retry in %s)\n", stamp, styles.ErrorStyle.Render(mutation.Describe(res.Err)), res.Next)
		return
	}

	counts := make(map[domain.ItemStatus]int)
	for _, item := range res.Page.Items {
		counts[item.Status]++
	}
	fmt.Fprintf(w, "%s %d items", stamp, len(res.Page.Items))
	for _, s := range []domain.ItemStatus{domain.StatusProcessing, domain.StatusReady, domain.StatusError, domain.StatusArchived} {
		if n := counts[s]; n > 0 {
			fmt.Fprintf(w, " · %s %d %s", styles.StatusChar(s), n, s)
		}
	}
	fmt.Fprintf(w, " (next in %s)\n", res.Next)
}
