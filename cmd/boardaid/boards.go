package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/boardaid/internal/config"
	"github.com/nao1215/boardaid/internal/site"
)

// NewBoardsCmd creates the boards command.
func NewBoardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boards <site-url>",
		Short: "List the boards of an imageboard",
		Long: `Boards loads the main page of an imageboard and lists its boards.

Examples:
  # List the boards of 4chan
  boardaid boards https://www.4chan.org/

  # Print a boards section for .boardaid.yaml
  boardaid boards --yaml https://www.4chan.org/`,
		Args: cobra.ExactArgs(1),
		RunE: runBoardsCmd,
	}

	cmd.Flags().Bool("yaml", false, "Print the boards as a configuration file section")

	return cmd
}

type boardListing struct {
	Name string
	Code string
	URL  string
}

func runBoardsCmd(cmd *cobra.Command, args []string) error {
	asYAML, err := cmd.Flags().GetBool("yaml")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	siteURL := args[0]
	strategy, err := site.DefaultRegistry().ForURL(siteURL)
	if err != nil {
		return fmt.Errorf("%w: %s (known sites: %v)", err, siteURL, site.DefaultRegistry().Names())
	}
	clients, err := newClientSet(cfg)
	if err != nil {
		return fmt.Errorf("failed to create http client: %w", err)
	}
	doc, err := clients.FetchDocument(cmd.Context(), siteURL)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", siteURL, err)
	}

	found := strategy.FindBoards(doc)
	listing := make([]boardListing, 0, len(found))
	for name, u := range found {
		listing = append(listing, boardListing{Name: name, Code: strategy.BoardShortcut(u), URL: u})
	}
	sort.Slice(listing, func(i, j int) bool {
		if listing[i].Code != listing[j].Code {
			return listing[i].Code < listing[j].Code
		}
		return listing[i].Name < listing[j].Name
	})

	out := cmd.OutOrStdout()
	if len(listing) == 0 {
		fmt.Fprintf(out, "No boards found on %s\n", siteURL)
		return nil
	}
	if asYAML {
		entries := make([]config.BoardEntry, 0, len(listing))
		for _, l := range listing {
			entries = append(entries, config.BoardEntry{URL: l.URL})
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(config.File{Boards: entries}); err != nil {
			return fmt.Errorf("failed to encode boards: %w", err)
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tURL")
	for _, l := range listing {
		fmt.Fprintf(tw, "/%s/\t%s\t%s\n", l.Code, l.Name, l.URL)
	}
	return tw.Flush()
}
