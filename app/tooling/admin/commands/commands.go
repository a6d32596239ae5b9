// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/gossipchain/business/web/errs"
	"github.com/go-resty/resty/v2"
)

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

// printJSON writes the value to stdout as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

// check converts an error response from the node into an error.
func check(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}

	var er errs.Response
	if err := json.Unmarshal(resp.Body(), &er); err == nil && er.Error != "" {
		if len(er.Fields) > 0 {
			return fmt.Errorf("%s: %s: %v", resp.Status(), er.Error, er.Fields)
		}
		return fmt.Errorf("%s: %s", resp.Status(), er.Error)
	}

	return errors.New(resp.Status())
}

// get performs a GET against the path and prints the JSON result.
func get(client *resty.Client, path string) error {
	var result any
	resp, err := client.R().SetResult(&result).Get(path)
	if err != nil {
		return err
	}

	if err := check(resp); err != nil {
		return err
	}

	return printJSON(result)
}
