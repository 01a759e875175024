package main

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/service/checkout/domain"
)

type totalsOptions struct {
	cartFile   string
	quotesFile string
	threshold  string
	discount   string
	configFile string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "checkout-cli",
		Short:         "Offline tools for the storefront checkout",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTotalsCmd())
	return root
}

func newTotalsCmd() *cobra.Command {
	opts := &totalsOptions{}
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Recompute checkout totals from a cart dump and shipping quotes",
		Long: `Reads a cart (either a full cart object or a bare list of shop groups) and a list of
shipping quotes, then prints the totals exactly as the checkout service computes them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTotals(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.cartFile, "cart", "", "cart JSON file")
	cmd.Flags().StringVar(&opts.quotesFile, "quotes", "", "shipping quotes JSON file (optional)")
	cmd.Flags().StringVar(&opts.threshold, "threshold", "", "free shipping threshold; defaults to the configured value")
	cmd.Flags().StringVar(&opts.discount, "discount", "", "coupon discount to apply (optional)")
	cmd.Flags().StringVar(&opts.configFile, "config", "configs/config.yaml", "config file used when --threshold is not set")
	_ = cmd.MarkFlagRequired("cart")
	return cmd
}

func runTotals(cmd *cobra.Command, opts *totalsOptions) error {
	groups, err := readGroups(opts.cartFile)
	if err != nil {
		return err
	}

	var quotes []domain.ShippingQuote
	if opts.quotesFile != "" {
		data, err := os.ReadFile(opts.quotesFile)
		if err != nil {
			return errors.Wrap(err, "read quotes")
		}
		if err := json.Unmarshal(data, &quotes); err != nil {
			return errors.Wrap(err, "parse quotes")
		}
	}

	threshold, err := resolveThreshold(opts)
	if err != nil {
		return err
	}

	totals := domain.Aggregate(groups, quotes, threshold)
	if opts.discount != "" {
		d, err := decimal.NewFromString(opts.discount)
		if err != nil {
			return errors.Wrapf(err, "invalid --discount %q", opts.discount)
		}
		totals = totals.WithDiscount(d)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(totals)
}

// readGroups 接受完整的购物车对象，或者只有店铺分组的数组
func readGroups(path string) ([]domain.ShopGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var groups []domain.ShopGroup
		if err := json.Unmarshal(data, &groups); err != nil {
			return nil, errors.Wrap(err, "parse cart groups")
		}
		return groups, nil
	}
	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, errors.Wrap(err, "parse cart")
	}
	return cart.Groups, nil
}

func resolveThreshold(opts *totalsOptions) (decimal.Decimal, error) {
	if opts.threshold != "" {
		v, err := decimal.NewFromString(opts.threshold)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "invalid --threshold %q", opts.threshold)
		}
		return v, nil
	}
	cfg, err := bootstrap.LoadConfig(opts.configFile)
	if err != nil {
		return decimal.Zero, err
	}
	return cfg.Threshold(), nil
}
