package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/FeS1111/TSP/internal/client"
	"github.com/FeS1111/TSP/internal/theme"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newEventsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List or delete events",
	}
	cmd.AddCommand(newEventsListCmd(e), newEventsDeleteCmd(e))
	return cmd
}

func newEventsListCmd(e *env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			events, err := e.api.ListEvents(ctx)
			if err != nil {
				return fmt.Errorf("list events: %s", client.MessageOf(err))
			}
			mine := make(map[int64]client.ReactionType)
			if rs, err := e.api.ListReactions(ctx); err == nil {
				uid := int64(0)
				if u, ok := e.api.CurrentUser(); ok {
					uid = u.ID
				}
				for _, r := range rs {
					if uid == 0 || r.UserID == 0 || r.UserID == uid {
						mine[r.EventID] = r.Type
					}
				}
			} else {
				e.log.Warn("reactions unavailable", "main.events", "error", err)
			}
			for i := range events {
				events[i].MyReaction = mine[events[i].ID]
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}

			var catalog client.Catalog
			if cats, err := e.api.ListCategories(ctx); err == nil {
				catalog = client.NewCatalog(cats)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderEvents(events, catalog))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func renderEvents(events []client.Event, catalog client.Catalog) string {
	sorted := append([]client.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Datetime.Before(sorted[j].Datetime)
	})

	rows := make([][]string, 0, len(sorted))
	for _, ev := range sorted {
		place := "-"
		if ev.HasCoords() {
			place = fmt.Sprintf("%.5f, %.5f", ev.Latitude.Value, ev.Longitude.Value)
		}
		when := "-"
		if !ev.Datetime.IsZero() {
			when = ev.Datetime.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			strconv.FormatInt(ev.ID, 10),
			when,
			ev.Title,
			catalog.Name(ev.Category),
			strconv.Itoa(ev.GoingTotal()),
			theme.ReactionLabel(string(ev.MyReaction)),
			place,
		})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(theme.ColorBright)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("ID", "WHEN", "TITLE", "CATEGORY", "GOING", "YOU", "PLACE").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

func newEventsDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an event you created",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.api.DeleteEvent(cmd.Context(), id); err != nil {
				switch {
				case client.IsKind(err, client.KindPermission):
					return fmt.Errorf("event %d: only the creator can delete it", id)
				case client.IsKind(err, client.KindNotFound):
					return fmt.Errorf("event %d does not exist", id)
				}
				return fmt.Errorf("delete event %d: %s", id, client.MessageOf(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted event %d.\n", id)
			return nil
		},
	}
}

func newReactCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "react ID going|not_going",
		Short:     "Answer an event",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(client.ReactionGoing), string(client.ReactionNotGoing)},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t := client.ReactionType(args[1])
			if !t.Valid() {
				return fmt.Errorf("reaction must be %q or %q", client.ReactionGoing, client.ReactionNotGoing)
			}
			if _, err := e.api.SetReaction(cmd.Context(), id, t); err != nil {
				if client.IsKind(err, client.KindValidation) {
					return fmt.Errorf("event %d: %s", id, describe(err))
				}
				return fmt.Errorf("react to event %d: %s", id, client.MessageOf(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Answered %s to event %d.\n", theme.ReactionLabel(string(t)), id)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid event id %q", s)
	}
	return id, nil
}
