package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

type balance struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	account := signature.PublicKeyToAddress(privateKey.PublicKey)
	fmt.Println("For Account:", account)

	var bal balance
	resp, err := client().R().
		SetResult(&bal).
		SetPathParam("account", account).
		Get("/v1/accounts/balance/{account}")
	if err != nil {
		log.Fatal(err)
	}

	if resp.IsError() {
		log.Fatalf("node error: %s", resp.Status())
	}

	fmt.Println(bal.Balance)
}
