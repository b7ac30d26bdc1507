package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/mangacap/internal/store"
	"github.com/brogergvhs/mangacap/internal/ui"
)

var flagSyncWorkers int

func init() {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Rescrape every catalog manga from its first source",
		RunE:  runSync,
	}

	syncCmd.Flags().IntVar(&flagSyncWorkers, "workers", 2, "manga synced in parallel")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := context.Background()
	mangas, err := rt.store.AllManga(ctx)
	if err != nil {
		return err
	}
	if len(mangas) == 0 {
		fmt.Println("Catalog is empty. Nothing to sync.")
		return nil
	}

	pm := ui.NewProgressManager()
	bar := pm.NewBar("sync", len(mangas))
	stats := &ui.Stats{}

	// Different manga may sync in parallel; the service serializes any two
	// scrapes that land on the same record.
	sem := make(chan struct{}, max(1, flagSyncWorkers))
	var wg sync.WaitGroup

	for _, m := range mangas {
		wg.Add(1)
		sem <- struct{}{}
		go func(m *store.Manga) {
			defer wg.Done()
			defer func() { <-sem }()
			defer bar.Increment()

			if len(m.Sources) == 0 {
				rt.log.Debugf("%s has no sources, skipping\n", m.Slug)
				stats.Failed.Add(1)
				return
			}

			src := m.Sources[0]
			id, err := rt.service.ScrapeManga(ctx, src.URL, src.Site, m.ID)
			if err != nil || id == "" {
				stats.Failed.Add(1)
				return
			}
			stats.Scraped.Add(1)
		}(m)
	}
	wg.Wait()
	pm.Close()

	fmt.Println()
	fmt.Println("Sync Summary:")
	fmt.Printf("Synced: %d\n", stats.Scraped.Load())
	fmt.Printf("Failed: %d\n", stats.Failed.Load())

	return nil
}
