package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/repository"
	"github.com/NurulloMahmud/tafakkur/pkg/database"
	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
)

// seedNamespace keeps generated ids stable across runs so re-seeding skips
// rows that already exist.
var seedNamespace = uuid.MustParse("0b6c6f1e-4e0a-4d1f-9a3e-5f2b7c8d9e10")

var (
	seedCategories = []string{
		"Dresses", "Outerwear", "Footwear", "Accessories", "Knitwear",
		"Sportswear", "Bags", "Jewelry", "Scarves", "Denim",
	}
	seedAdjectives = []string{
		"Classic", "Relaxed", "Slim", "Vintage", "Everyday", "Quilted",
		"Linen", "Woven", "Waterproof", "Oversized", "Pleated", "Cropped",
	}
	seedNouns = []string{
		"Jacket", "Sneaker", "Tote", "Cardigan", "Midi Dress", "Trench Coat",
		"Hoodie", "Boot", "Necklace", "Shawl", "Jeans", "Blazer",
	}
	seedColors = []string{
		"black", "navy", "olive", "sand", "burgundy", "ivory", "grey", "rust",
	}
)

// seedData is a generated catalog.
type seedData struct {
	Categories []domain.Category
	Products   []domain.Product
	Links      []domain.ProductCategory
}

// seedStore is where generated rows are written.
type seedStore struct {
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	Links      repository.ProductCategoryRepository
}

// seedResult counts rows written and rows that already existed.
type seedResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// generateCatalog builds n products spread over the fixed category list.
// The same seed always yields the same rows.
func generateCatalog(n int, seed uint64) seedData {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var out seedData
	for i, title := range seedCategories {
		out.Categories = append(out.Categories, domain.Category{
			ID:          seedID("category", i),
			Title:       title,
			Description: fmt.Sprintf("Browse our %s collection.", title),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		})
	}

	for i := range n {
		adj := seedAdjectives[rng.IntN(len(seedAdjectives))]
		noun := seedNouns[rng.IntN(len(seedNouns))]
		color := seedColors[rng.IntN(len(seedColors))]
		p := domain.Product{
			ID:          seedID("product", i),
			Title:       fmt.Sprintf("%s %s", adj, noun),
			Description: fmt.Sprintf("A %s %s in %s.", strings.ToLower(adj), strings.ToLower(noun), color),
			Price:       decimal.New(int64(499+rng.IntN(50000)), -2),
			CreatedAt:   base.Add(time.Hour + time.Duration(i)*time.Second),
		}
		out.Products = append(out.Products, p)

		first := rng.IntN(len(out.Categories))
		picks := []int{first}
		if rng.IntN(3) == 0 {
			picks = append(picks, (first+1+rng.IntN(len(out.Categories)-1))%len(out.Categories))
		}
		for j, c := range picks {
			out.Links = append(out.Links, domain.ProductCategory{
				ID:         seedID("link", i*2+j),
				ProductID:  p.ID,
				CategoryID: out.Categories[c].ID,
				CreatedAt:  p.CreatedAt,
			})
		}
	}
	return out
}

func seedID(kind string, i int) string {
	return uuid.NewSHA1(seedNamespace, fmt.Appendf(nil, "%s:%d", kind, i)).String()
}

// writeSeed inserts data in dependency order. Rows that already exist are
// counted as skipped.
func writeSeed(ctx context.Context, store seedStore, data seedData) (map[string]seedResult, error) {
	res := map[string]seedResult{}
	tally := func(key string, err error) error {
		r := res[key]
		switch {
		case err == nil:
			r.Created++
		case exists(err):
			r.Skipped++
		default:
			return err
		}
		res[key] = r
		return nil
	}

	for i := range data.Categories {
		if err := tally("categories", store.Categories.Create(ctx, &data.Categories[i])); err != nil {
			return res, fmt.Errorf("seed category: %w", err)
		}
	}
	for i := range data.Products {
		if err := tally("products", store.Products.Create(ctx, &data.Products[i])); err != nil {
			return res, fmt.Errorf("seed product: %w", err)
		}
	}
	for i := range data.Links {
		if err := tally("links", store.Links.Create(ctx, &data.Links[i])); err != nil {
			return res, fmt.Errorf("seed link: %w", err)
		}
	}
	return res, nil
}

func exists(err error) bool {
	return errors.Is(err, apperrors.ErrAlreadyExists) || database.IsUniqueViolation(err)
}

func newSeedCommand(e env) *cobra.Command {
	var (
		count int
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a deterministic demo catalog",
		Long: `Insert demo categories, products and product-category links into Postgres.
Ids are derived from the row position, so running the command again skips
rows that already exist. Run "searchctl bootstrap" afterwards to index them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--products must be at least 1")
			}
			cfg, l, err := e.setup()
			if err != nil {
				return err
			}
			store, closeFn, err := e.store(cmd.Context(), cfg, l)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := writeSeed(cmd.Context(), store, generateCatalog(count, seed))
			if err != nil {
				return err
			}
			for _, key := range []string{"categories", "products", "links"} {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s created=%d skipped=%d\n", key, res[key].Created, res[key].Skipped)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "products", 1000, "number of products to generate")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed for titles, prices and links")
	return cmd
}
