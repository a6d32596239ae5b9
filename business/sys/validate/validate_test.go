package validate_test

import (
	"testing"

	"github.com/ardanlabs/gossipchain/business/sys/validate"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

type model struct {
	From   string `json:"from" validate:"required"`
	Amount uint64 `json:"amount" validate:"required,gt=0"`
}

func Test_Check(t *testing.T) {
	t.Log("Given the need to validate models.")
	{
		t.Logf("\tTest 0:\tWhen checking a valid model.")
		{
			if err := validate.Check(model{From: "bill", Amount: 1}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould pass validation: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould pass validation.", success)
		}

		t.Logf("\tTest 1:\tWhen checking a model missing fields.")
		{
			err := validate.Check(model{})

			fields := validate.GetFieldErrors(err)
			if fields == nil {
				t.Fatalf("\t%s\tTest 1:\tShould return field errors, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould return field errors.", success)

			m := fields.Fields()
			if m["from"] != "from is a required field" {
				t.Fatalf("\t%s\tTest 1:\tShould name the json field in english, got %q.", failed, m["from"])
			}
			if _, exists := m["amount"]; !exists {
				t.Fatalf("\t%s\tTest 1:\tShould report the amount field, got %v.", failed, m)
			}
			t.Logf("\t%s\tTest 1:\tShould name the json fields in english.", success)
		}
	}
}
