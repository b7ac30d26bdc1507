package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagScrapeURL  string
	flagScrapeSite string
	flagMangaID    string
)

func init() {
	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape one manga from a site into the catalog",
		RunE:  runScrape,
	}

	scrapeCmd.Flags().StringVar(&flagScrapeURL, "url", "", "manga page URL on the source site")
	scrapeCmd.Flags().StringVar(&flagScrapeSite, "site", "", "site identifier (mgeko, mgekojumbo, thunderscans, mangadex)")
	scrapeCmd.Flags().StringVar(&flagMangaID, "manga-id", "", "rescrape this existing catalog record")
	_ = scrapeCmd.MarkFlagRequired("url")
	_ = scrapeCmd.MarkFlagRequired("site")

	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	id, err := rt.service.ScrapeManga(context.Background(), flagScrapeURL, flagScrapeSite, flagMangaID)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("scrape failed for %s", flagScrapeURL)
	}

	fmt.Println("Scraped manga:", id)
	return nil
}
