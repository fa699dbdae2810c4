package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/boardaid/internal/api"
	"github.com/nao1215/boardaid/internal/filter"
)

var errUnknownKind = errors.New("unknown block list (use filenames or content)")

// NewFilterCmd creates the filter command with its subcommands.
func NewFilterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Edit the block lists",
		Long: `Filter edits the block lists stored in the filter list file.

A thread is held for review when a post file name or a post comment
contains a term of the matching list. Terms match case-insensitively.

Edit the file while boardaid is not running; a running session saves its
own lists on exit. Use the control API to change the lists of a running
session.

Examples:
  boardaid filter list
  boardaid filter add content "spoiler" "nsfw"
  boardaid filter remove filenames "cover"`,
	}

	cmd.AddCommand(newFilterListCmd())
	cmd.AddCommand(newFilterAddCmd())
	cmd.AddCommand(newFilterRemoveCmd())

	return cmd
}

func newFilterListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the block lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, _, err := openFilterList(cmd)
			if err != nil {
				return err
			}
			printBlockList(cmd.OutOrStdout(), "File names", f.FileNames())
			printBlockList(cmd.OutOrStdout(), "Post content", f.PostContent())
			return nil
		},
	}
}

func newFilterAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <filenames|content> <term>...",
		Short: "Add terms to a block list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editBlockList(cmd, args[0], args[1:], (*filter.BlockList).Add)
		},
	}
}

func newFilterRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <filenames|content> <term>...",
		Short: "Remove terms from a block list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editBlockList(cmd, args[0], args[1:], (*filter.BlockList).Remove)
		},
	}
}

// openFilterList loads the filter list file. A missing file yields empty lists.
func openFilterList(cmd *cobra.Command) (*filter.Filter, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}
	f := filter.New(nil)
	if _, err := os.Stat(cfg.FilterListPath); errors.Is(err, os.ErrNotExist) {
		return f, cfg.FilterListPath, nil
	}
	if err := f.LoadFilterListFile(cfg.FilterListPath); err != nil {
		return nil, "", err
	}
	return f, cfg.FilterListPath, nil
}

func selectBlockList(f *filter.Filter, kind string) (*filter.BlockList, error) {
	switch kind {
	case api.ListFileNames:
		return f.FileNames(), nil
	case api.ListPostContent:
		return f.PostContent(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownKind, kind)
	}
}

func editBlockList(cmd *cobra.Command, kind string, terms []string, edit func(*filter.BlockList, string) bool) error {
	f, path, err := openFilterList(cmd)
	if err != nil {
		return err
	}
	list, err := selectBlockList(f, kind)
	if err != nil {
		return err
	}

	changed := 0
	for _, term := range terms {
		if edit(list, term) {
			changed++
		}
	}
	if changed == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing changed")
		return nil
	}
	if err := f.SaveFilterListFile(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %d term(s) in %s\n", changed, path)
	return nil
}

func printBlockList(w io.Writer, title string, list *filter.BlockList) {
	fmt.Fprintf(w, "%s (%d):\n", title, list.Len())
	for _, term := range list.Entries() {
		fmt.Fprintf(w, "  %s\n", term)
	}
}
