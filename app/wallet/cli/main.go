// This program provides a wallet for signing and sending transactions to
// a node.
package main

import "github.com/ardanlabs/gossipchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
