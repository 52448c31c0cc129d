package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"freshloop/internal/core/community"
	"freshloop/internal/core/ingredient"
	"freshloop/internal/core/recipe"
	"freshloop/internal/pkg/common"

	"github.com/spf13/cobra"
)

func newSuggestCmd() *cobra.Command {
	var tags, filters []string
	cmd := &cobra.Command{
		Use:     "suggest",
		Short:   "Suggest recipes for a set of ingredients",
		Example: "  freshctl suggest --tag Eggs --tag Spinach --filter Quick",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, closeGen, err := newGenerator(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeGen()

			session := recipe.NewSession(append(tags, args...), filters)
			out, err := recipe.NewSuggester(gen, recipe.Catalog()).Suggest(cmd.Context(), recipe.SuggestRequest{
				Tags:    session.Tags,
				Filters: session.Filters,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "ingredient tag (repeatable)")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "diet filter: Vegetarian, Vegan, Gluten-Free, Quick (repeatable)")
	return cmd
}

func newParseCmd() *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:     "parse <line>...",
		Short:   "Parse ingredient lines into quantity, unit, name and preparation",
		Example: `  freshctl parse "2 cups chopped spinach (washed)" --tag Spinach`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]ingredient.ParsedIngredient, 0, len(args))
			for _, line := range args {
				p := ingredient.Parse(line)
				p.IsFromUserInput = ingredient.FromUserInput(p, tags)
				parsed = append(parsed, p)
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"ingredients":  parsed,
				"availability": ingredient.Bucket(args, tags),
			})
		},
	}
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "ingredient tag the user already has (repeatable)")
	return cmd
}

func newMatchCmd() *cobra.Command {
	var file, mode string
	cmd := &cobra.Command{
		Use:     "match",
		Short:   "Match wanting posts with giving posts from a JSON file",
		Example: "  freshctl match --file posts.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := readPosts(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			var gen community.Generator
			if mode != community.ModeLocal {
				g, closeGen, err := newGenerator(cmd.Context(), cmd)
				if err != nil {
					return err
				}
				defer closeGen()
				if g != nil {
					gen = g
				}
			}

			res, err := community.NewMatcher(mode, gen, community.DefaultMatchOptions()).Match(cmd.Context(), posts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "posts JSON file (- for stdin)")
	cmd.Flags().StringVar(&mode, "mode", community.ModeLocal, "matcher mode: local, remote, fallback")
	return cmd
}

// readPosts 讀取貼文陣列；未知欄位視為錯誤
func readPosts(path string, stdin io.Reader) ([]community.Post, error) {
	var r io.Reader = stdin
	if path != "-" && path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var posts []community.Post
	if err := common.DecodeJSONStrict(r, &posts); err != nil {
		return nil, fmt.Errorf("reading posts: %w", err)
	}
	return posts, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
