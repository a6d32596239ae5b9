package commands

import (
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
)

// Balance prints the balance of an account.
func Balance(args []string, client *resty.Client) error {
	if len(args) != 3 {
		fmt.Println("balance <account>")
		return ErrHelp
	}

	return get(client, "/v1/accounts/balance/"+args[2])
}

// Proof prints the merkle proof that a transaction was mined.
func Proof(args []string, client *resty.Client) error {
	if len(args) != 3 {
		fmt.Println("proof <tx id>")
		return ErrHelp
	}

	return get(client, "/v1/tx/proof/"+args[2])
}

// Accounts prints the account names known to the node.
func Accounts(client *resty.Client) error {
	return get(client, "/v1/accounts/list")
}

// Send submits an unsigned transaction to the node.
func Send(args []string, client *resty.Client) error {
	if len(args) != 5 {
		fmt.Println("send <from> <to> <amount>")
		return ErrHelp
	}

	amount, err := strconv.ParseUint(args[4], 10, 64)
	if err != nil {
		return fmt.Errorf("parsing amount: %w", err)
	}

	body := struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount uint64 `json:"amount"`
	}{
		From:   args[2],
		To:     args[3],
		Amount: amount,
	}

	var result any
	resp, err := client.R().SetBody(body).SetResult(&result).Post("/v1/tx/submit")
	if err != nil {
		return err
	}

	if err := check(resp); err != nil {
		return err
	}

	return printJSON(result)
}
