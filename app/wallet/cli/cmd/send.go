package cmd

import (
	"crypto/ecdsa"
	"fmt"
	"log"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount uint64
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		sendWithDetails(privateKey)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account to send to.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Amount to send.")
}

func sendWithDetails(privateKey *ecdsa.PrivateKey) {
	tx, err := ledger.NewTransaction("", to, amount).Sign(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	var accepted ledger.Transaction
	resp, err := client().R().
		SetBody(tx).
		SetResult(&accepted).
		Post("/v1/tx/submit")
	if err != nil {
		log.Fatal(err)
	}

	if resp.IsError() {
		log.Fatalf("node rejected the transaction: %s: %s", resp.Status(), resp.String())
	}

	fmt.Println("Transaction accepted:", accepted.ID)
}
