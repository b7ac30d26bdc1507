package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var (
	flagPick      bool
	flagScrapeAll bool
)

func init() {
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every enabled site and list the results",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}

	searchCmd.Flags().BoolVar(&flagPick, "pick", false, "interactively pick one result and scrape it")
	searchCmd.Flags().BoolVar(&flagScrapeAll, "scrape-all", false, "scrape every result into the catalog")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := context.Background()
	results := rt.service.SearchAllSites(ctx, args[0])
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%3d) [%s] %s\n     %s\n", i+1, r.Site, r.Title, r.URL)
	}

	switch {
	case flagScrapeAll:
		ok := 0
		for _, r := range results {
			id, err := rt.service.ScrapeManga(ctx, r.URL, r.Site, "")
			if err != nil {
				return err
			}
			if id == "" {
				rt.log.Errorf("scrape failed: %s (%s)\n", r.Title, r.Site)
				continue
			}
			ok++
		}
		fmt.Printf("\nScraped %d/%d results.\n", ok, len(results))

	case flagPick:
		items := make([]string, len(results))
		for i, r := range results {
			items[i] = fmt.Sprintf("[%s] %s", r.Site, r.Title)
		}

		prompt := promptui.Select{
			Label: "Scrape which result",
			Items: items,
			Size:  12,
		}

		idx, _, err := prompt.Run()
		if err != nil {
			return fmt.Errorf("selection cancelled")
		}

		picked := results[idx]
		id, err := rt.service.ScrapeManga(ctx, picked.URL, picked.Site, "")
		if err != nil {
			return err
		}
		if id == "" {
			return fmt.Errorf("scrape failed for %s", picked.Title)
		}
		fmt.Println("Scraped:", picked.Title, "->", id)
	}

	return nil
}
