package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newPersonCmd() *cobra.Command {
	person := &cobra.Command{
		Use:   "person",
		Short: "Look up 1:1-prep context and action items for a person",
	}
	person.AddCommand(newPersonContextCmd())
	person.AddCommand(newPersonActionItemsCmd())
	return person
}

func newPersonContextCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "context <name>",
		Short: "Summarize meetings, topics, and open actions for a person",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()
			defer a.tracer.Shutdown(cmd.Context()) //nolint:errcheck // best-effort flush on exit

			pc, err := a.searcher.GetPersonContext(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("get person context: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(pc)
			}

			fmt.Printf("%s — %d meetings, last on %s\n", pc.Person, pc.MeetingCount, pc.LastMeeting)
			if len(pc.RecentTopics) > 0 {
				fmt.Println("\nRecent topics:")
				for _, t := range pc.RecentTopics {
					fmt.Printf("- %s\n", t)
				}
			}
			if len(pc.OpenActions) > 0 {
				fmt.Println("\nOpen actions:")
				for _, act := range pc.OpenActions {
					fmt.Printf("- %s\n", act)
				}
			}
			if len(pc.RecentMeetings) > 0 {
				fmt.Println("\nRecent meetings:")
				for _, m := range pc.RecentMeetings {
					fmt.Printf("- %s %s: %s\n", m.Date, m.Title, m.Summary)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newPersonActionItemsCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "action-items [name]",
		Short: "List open action items, optionally scoped to one person",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()
			defer a.tracer.Shutdown(cmd.Context()) //nolint:errcheck // best-effort flush on exit

			items, err := a.searcher.GetActionItems(cmd.Context(), name, limit)
			if err != nil {
				return fmt.Errorf("get action items: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}

			if len(items) == 0 {
				fmt.Println("no action items found")
				return nil
			}
			for _, item := range items {
				fmt.Printf("- [%s] %s (%s)\n", item.Date, item.Item, item.Source)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of action items")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
