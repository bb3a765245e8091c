// txindexcli is the companion command-line client for txindexd: nonce
// issuance and transaction queries against the REST API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "txindexcli",
		Usage: "command line client for txindexd",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "http://127.0.0.1:8080",
				Usage: "base URL of the txindexd REST API",
			},
		},
		Commands: []*cli.Command{
			healthCommand,
			nonceCommand,
			getTransactionCommand,
			listTransactionsCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "txindexcli: %v\n", err)
		os.Exit(1)
	}
}

// apiGet performs a GET against addr+path and returns the decoded JSON
// body, or an error describing a non-2xx response.
func apiGet(addr, path string) (map[string]any, error) {
	resp, err := http.Get(addr + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeOrError(resp)
}

// apiPostJSON performs a POST of body (marshaled to JSON) against
// addr+path and returns the decoded JSON response.
func apiPostJSON(addr, path string, body any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(addr+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeOrError(resp)
}

func decodeOrError(resp *http.Response) (map[string]any, error) {
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return body, fmt.Errorf("request failed with status %d: %v", resp.StatusCode, body)
	}
	return body, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
