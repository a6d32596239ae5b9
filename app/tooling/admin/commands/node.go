package commands

import (
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Status prints the summary of the node.
func Status(client *resty.Client) error {
	return get(client, "/v1/node/status")
}

// Chain prints every block of the node's chain.
func Chain(client *resty.Client) error {
	return get(client, "/v1/blocks/list")
}

// Pool prints the transactions waiting to be mined.
func Pool(client *resty.Client) error {
	return get(client, "/v1/tx/pool")
}

// Peers prints the peers connected to the node.
func Peers(client *resty.Client) error {
	return get(client, "/v1/peers/list")
}

// Connect asks the node to connect to another node.
func Connect(args []string, client *resty.Client) error {
	if len(args) != 3 {
		fmt.Println("connect <ws://host:port/v1/p2p>")
		return ErrHelp
	}

	body := struct {
		Address string `json:"address"`
	}{
		Address: args[2],
	}

	var result any
	resp, err := client.R().SetBody(body).SetResult(&result).Post("/v1/peers/connect")
	if err != nil {
		return err
	}

	if err := check(resp); err != nil {
		return err
	}

	return printJSON(result)
}

// Mine asks the node to mine the transactions in its mempool.
func Mine(client *resty.Client) error {
	var result any
	resp, err := client.R().SetResult(&result).Post("/v1/mining/start")
	if err != nil {
		return err
	}

	if err := check(resp); err != nil {
		return err
	}

	return printJSON(result)
}
