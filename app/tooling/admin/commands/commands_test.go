package commands_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ardanlabs/gossipchain/app/tooling/admin/commands"
	"github.com/ardanlabs/gossipchain/business/web/errs"
	"github.com/go-resty/resty/v2"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Commands(t *testing.T) {
	t.Log("Given the need to drive a node from the admin tool.")
	{
		var sent string
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/node/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"length":1}`))
		})
		mux.HandleFunc("/v1/mining/start", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(errs.Response{Error: "no transactions to mine"})
		})
		mux.HandleFunc("/v1/tx/submit", func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			sent = strings.TrimSpace(string(data))
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
		})

		srv := httptest.NewServer(mux)
		defer srv.Close()

		client := resty.New().SetBaseURL(srv.URL)

		t.Logf("\tTest 0:\tWhen asking for the status.")
		{
			if err := commands.Status(client); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to read the status: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to read the status.", success)
		}

		t.Logf("\tTest 1:\tWhen the node rejects a request.")
		{
			err := commands.Mine(client)
			if err == nil || !strings.Contains(err.Error(), "no transactions to mine") {
				t.Fatalf("\t%s\tTest 1:\tShould report the node error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould report the node error.", success)
		}

		t.Logf("\tTest 2:\tWhen sending a transaction.")
		{
			if err := commands.Send([]string{"admin", "send", "bill", "jill", "10"}, client); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to send: %v", failed, err)
			}

			if sent != `{"from":"bill","to":"jill","amount":10}` {
				t.Fatalf("\t%s\tTest 2:\tShould post the transaction, got %s.", failed, sent)
			}
			t.Logf("\t%s\tTest 2:\tShould post the transaction.", success)

			if err := commands.Send([]string{"admin", "send", "bill"}, client); err != commands.ErrHelp {
				t.Fatalf("\t%s\tTest 2:\tShould print help on missing arguments, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould print help on missing arguments.", success)
		}

		t.Logf("\tTest 3:\tWhen asking for a proof without an id.")
		{
			if err := commands.Proof([]string{"admin", "proof"}, client); err != commands.ErrHelp {
				t.Fatalf("\t%s\tTest 3:\tShould print help on missing arguments, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould print help on missing arguments.", success)
		}
	}
}
