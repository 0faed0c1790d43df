package main

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mmcdole/wardrobe/internal/prefs"
	"github.com/mmcdole/wardrobe/internal/tui"
)

func prefsPath(e *env) string {
	if e.configDir == "" {
		return prefs.DefaultPath()
	}
	return filepath.Join(e.configDir, "prefs.toml")
}

// runTUI opens the interactive list and saves the view on exit
func runTUI(cmd *cobra.Command, e *env) error {
	c, err := e.open()
	if err != nil {
		return err
	}

	path := prefsPath(e)
	saved, _ := prefs.Load(path)

	model := tui.NewModel(tui.Deps{
		Catalog:     c.catalog,
		Coordinator: c.coord,
		Items:       c.items,
		Scheduler:   c.sched,
		Logger:      e.logger,
		Prefs:       saved,
		PageSize:    e.cfg.List.PageSize,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)

	e.logger.Info("starting TUI", "version", Version, "server", e.cfg.Server.URL)

	final, err := p.Run()
	if err != nil {
		e.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	if m, ok := final.(tui.Model); ok {
		m.Close()
		if err := prefs.Save(path, m.Prefs()); err != nil {
			e.logger.Warn("failed to save preferences", "error", err)
		}
	}

	e.logger.Info("shutting down")
	return nil
}
