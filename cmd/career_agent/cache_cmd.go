package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/career-agent/internal/cache"
	"github.com/jonathan/career-agent/internal/config"
	"github.com/jonathan/career-agent/internal/schemas"
	"github.com/jonathan/career-agent/internal/types"
)

var cacheCommand = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or seed the lookup cache",
}

var (
	cachePath     string
	cacheListings string
	cacheTags     []string
)

func init() {
	cacheCommand.PersistentFlags().StringVar(&cachePath, "cache", config.Defaults().CacheFile, "Path to the lookup cache file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached (company, role) entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cacheList(cmd.OutOrStdout(), openCLICache())
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <company> <role>",
		Short: "Print the cached listings for a company and role as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cacheGet(cmd.OutOrStdout(), openCLICache(), args[0], args[1])
		},
	}

	putCmd := &cobra.Command{
		Use:   "put <company> <role>",
		Short: "Seed the cache with listings read from a JSON array file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cacheListings == "" {
				return fmt.Errorf("--listings must be provided")
			}
			data, err := os.ReadFile(cacheListings)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", cacheListings, err)
			}
			return cachePut(cmd.OutOrStdout(), openCLICache(), args[0], args[1], data, cacheTags)
		},
	}
	putCmd.Flags().StringVar(&cacheListings, "listings", "", "Path to a JSON array of listings")
	putCmd.Flags().StringSliceVar(&cacheTags, "tags", nil, "Tags stored with the entry")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the cache file against its JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cacheVerify(cmd.OutOrStdout(), cachePath)
		},
	}

	cacheCommand.AddCommand(listCmd, getCmd, putCmd, verifyCmd)
	rootCmd.AddCommand(cacheCommand)
}

func openCLICache() *cache.Store {
	log, err := newLogger(false)
	if err != nil {
		log = zap.NewNop()
	}
	return cache.Open(cachePath, cache.WithLogger(log))
}

func cacheList(out io.Writer, store *cache.Store) error {
	entries := store.Entries()
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "cache is empty")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tCOMPANY\tROLE\tLISTINGS\tUPDATED")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.Key, e.Company, e.Role, len(e.Listings), e.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func cacheGet(out io.Writer, store *cache.Store, company, role string) error {
	key := cache.Normalize(company, role)
	if !key.Valid() {
		return cache.ErrInvalidKey
	}
	entry, ok := store.Get(key)
	if !ok {
		return fmt.Errorf("no cache entry for %q", key)
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// cachePut validates each listing against the listing schema before storing the entry.
func cachePut(out io.Writer, store *cache.Store, company, role string, listingsJSON []byte, tags []string) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(listingsJSON, &raw); err != nil {
		return fmt.Errorf("listings must be a JSON array: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("listings array is empty")
	}

	listings := make([]types.JobListing, 0, len(raw))
	for i, item := range raw {
		if err := schemas.Validate(schemas.Listing, string(item)); err != nil {
			return fmt.Errorf("listing %d: %w", i, err)
		}
		var l types.JobListing
		if err := json.Unmarshal(item, &l); err != nil {
			return fmt.Errorf("listing %d: %w", i, err)
		}
		if l.Company == "" {
			l.Company = company
		}
		l.Source = types.SourceCached
		listings = append(listings, l)
	}

	key := cache.Normalize(company, role)
	if !key.Valid() {
		return cache.ErrInvalidKey
	}
	err := store.Put(key, types.CacheEntry{Company: company, Role: role, Listings: listings, Tags: tags})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "stored %d listing(s) under %s\n", len(listings), key)
	return nil
}

func cacheVerify(out io.Writer, path string) error {
	if err := schemas.ValidateFile(schemas.Cache, path); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "%s is valid\n", path)
	return nil
}
