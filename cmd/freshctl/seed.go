package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"freshloop/internal/core/community"
	"freshloop/internal/core/recipe"
	"freshloop/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/jaswdr/faker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	seedQuantities = []string{"1 bag", "2 portions", "About 500g", "Half a loaf", "A dozen", "Any amount"}
	seedExpiries   = []string{"Best used today", "Use by tomorrow", "Today by 7pm", "This weekend", ""}
)

func newSeedCmd() *cobra.Command {
	var (
		count       int
		seed        int64
		out         string
		server      string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:     "seed",
		Short:   "Generate demo community posts",
		Example: "  freshctl seed --count 10 --out posts.json\n  freshctl seed --count 20 --server http://localhost:8080",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			inputs := generatePosts(faker.NewWithSeed(rand.NewSource(seed)), count)

			if server != "" {
				return uploadPosts(cmd.Context(), newHTTPClient(server), inputs, concurrency)
			}

			posts := make([]community.Post, 0, len(inputs))
			for i, in := range inputs {
				p, err := community.NewPost(int64(i+1), in)
				if err != nil {
					return err
				}
				posts = append(posts, p)
			}
			if out == "" || out == "-" {
				return writeJSON(cmd.OutOrStdout(), posts)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := writeJSON(f, posts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d posts to %s\n", len(posts), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "number of posts")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().StringVar(&out, "out", "-", "output file (- for stdout)")
	cmd.Flags().StringVar(&server, "server", "", "post to a running server instead of writing a file")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "parallel uploads when --server is set")
	return cmd
}

// generatePosts 以 faker 產生貼文內容
func generatePosts(fake faker.Faker, n int) []community.NewPostInput {
	inputs := make([]community.NewPostInput, 0, n)
	for i := 0; i < n; i++ {
		postType := community.PostGiving
		if fake.Bool() {
			postType = community.PostWanting
		}

		items := community.SplitItems(strings.Join(pickItems(fake, fake.IntBetween(1, 3)), ","))
		text := fmt.Sprintf("Sharing %s, free to a good home.", strings.Join(items, " and "))
		expiry := fake.RandomStringElement(seedExpiries)
		if postType == community.PostWanting {
			text = fmt.Sprintf("Looking for %s this week. Anything helps.", strings.Join(items, " or "))
			expiry = ""
		}

		inputs = append(inputs, community.NewPostInput{
			Type:     postType,
			Author:   fake.Person().Name(),
			Location: fmt.Sprintf("%.1f mi away", fake.Float64(1, 0, 2)+0.1),
			Text:     text,
			Items:    items,
			Qty:      fake.RandomStringElement(seedQuantities),
			Expiry:   expiry,
		})
	}
	return inputs
}

// pickItems 從常用食材中挑出不重複的 n 項
func pickItems(fake faker.Faker, n int) []string {
	pool := recipe.QuickAddIngredients
	seen := make(map[string]bool, n)
	var items []string
	for len(items) < n && len(seen) < len(pool) {
		item := fake.RandomStringElement(pool)
		if seen[item] {
			continue
		}
		seen[item] = true
		items = append(items, item)
	}
	return items
}

// uploadPosts 並行送出貼文
func uploadPosts(ctx context.Context, client *resty.Client, inputs []community.NewPostInput, concurrency int) error {
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for _, in := range inputs {
		g.Go(func() error {
			resp, err := client.R().SetContext(gctx).SetBody(in).Post("/api/posts")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("creating post: %s: %s", resp.Status(), resp.String())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	common.LogInfo("示範貼文已送出", zap.Int("count", len(inputs)))
	return nil
}
