// Command inspector prints the exchange's asset universe and current mids.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/hlgate/hlgate/internal/config"
	"github.com/hlgate/hlgate/internal/exchange"
	"github.com/hlgate/hlgate/internal/service"
)

func main() {
	network := flag.String("network", config.NetworkMainnet, "mainnet or testnet")
	baseURL := flag.String("url", "", "override the exchange base URL")
	asset := flag.String("asset", "", "only show this asset")
	flag.Parse()

	url := *baseURL
	if url == "" {
		url = config.MainnetURL
		if *network == config.NetworkTestnet {
			url = config.TestnetURL
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := service.NewTradingClient(exchange.NewHTTPGateway(url, 10*time.Second), service.TradingOptions{
		Mainnet: *network != config.NetworkTestnet,
	})
	if err := inspect(ctx, client, *asset, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "inspector:", err)
		os.Exit(1)
	}
}

func inspect(ctx context.Context, client *service.TradingClient, only string, out io.Writer) error {
	assets, err := client.GetAssets(ctx)
	if err != nil {
		return fmt.Errorf("load assets: %w", err)
	}
	mids, err := client.GetAllMids(ctx)
	if err != nil {
		return fmt.Errorf("load mids: %w", err)
	}
	sort.SliceStable(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYMBOL\tSZ DECIMALS\tMAX LEV\tMID")
	for _, a := range assets {
		if only != "" && a.Symbol != only {
			continue
		}
		mid := mids[a.Symbol]
		if mid == "" {
			mid = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", a.ID, a.Symbol, a.SzDecimals, a.MaxLeverage, mid)
	}
	return w.Flush()
}
