package main

import (
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"
)

var healthCommand = &cli.Command{
	Name:  "health",
	Usage: "check liveness and readiness of the daemon",
	Action: func(c *cli.Context) error {
		addr := c.String("addr")

		live, err := apiGet(addr, "/healthz")
		if err != nil {
			return err
		}
		ready, err := apiGet(addr, "/readyz")
		if err != nil {
			fmt.Println("healthz:")
			printJSON(live)
			return err
		}

		fmt.Println("healthz:")
		printJSON(live)
		fmt.Println("readyz:")
		return printJSON(ready)
	},
}

var nonceCommand = &cli.Command{
	Name:      "nonce",
	Usage:     "request a one-time authentication nonce for a wallet address",
	ArgsUsage: "wallet-address",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return cli.ShowCommandHelp(c, "nonce")
		}
		body, err := apiPostJSON(c.String("addr"), "/api/auth/nonce", map[string]string{
			"wallet_address": c.Args().Get(0),
		})
		if err != nil {
			return err
		}
		return printJSON(body)
	},
}

var getTransactionCommand = &cli.Command{
	Name:      "get",
	Usage:     "fetch a single transaction by signature",
	ArgsUsage: "signature",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return cli.ShowCommandHelp(c, "get")
		}
		body, err := apiGet(c.String("addr"), "/api/transactions/"+url.PathEscape(c.Args().Get(0)))
		if err != nil {
			return err
		}
		return printJSON(body)
	},
}

var listTransactionsCommand = &cli.Command{
	Name:  "list",
	Usage: "list transactions matching optional filters",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "signature"},
		&cli.StringFlag{Name: "from"},
		&cli.StringFlag{Name: "to"},
		&cli.StringFlag{Name: "program-id"},
		&cli.Int64Flag{Name: "slot-from"},
		&cli.Int64Flag{Name: "slot-to"},
		&cli.StringFlag{Name: "sort-by", Value: "slot"},
		&cli.StringFlag{Name: "order", Value: "desc"},
		&cli.IntFlag{Name: "limit", Value: 50},
		&cli.IntFlag{Name: "offset", Value: 0},
	},
	Action: func(c *cli.Context) error {
		q := url.Values{}
		setIfNonEmpty(q, "signature", c.String("signature"))
		setIfNonEmpty(q, "from", c.String("from"))
		setIfNonEmpty(q, "to", c.String("to"))
		setIfNonEmpty(q, "program_id", c.String("program-id"))
		if c.IsSet("slot-from") {
			q.Set("slot_from", fmt.Sprintf("%d", c.Int64("slot-from")))
		}
		if c.IsSet("slot-to") {
			q.Set("slot_to", fmt.Sprintf("%d", c.Int64("slot-to")))
		}
		q.Set("sort_by", c.String("sort-by"))
		q.Set("order", c.String("order"))
		q.Set("limit", fmt.Sprintf("%d", c.Int("limit")))
		q.Set("offset", fmt.Sprintf("%d", c.Int("offset")))

		body, err := apiGet(c.String("addr"), "/api/transactions?"+q.Encode())
		if err != nil {
			return err
		}
		return printJSON(body)
	},
}

func setIfNonEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
