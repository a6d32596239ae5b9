package errs_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ardanlabs/gossipchain/business/web/errs"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Trusted(t *testing.T) {
	t.Log("Given the need to carry a status with an error.")
	{
		errNotFound := errors.New("not found")

		tt := []struct {
			name   string
			err    error
			target error
			status int
		}{
			{"trusted", errs.NewTrusted(errNotFound, http.StatusNotFound), errNotFound, http.StatusNotFound},
			{"wrapped trusted", fmt.Errorf("lookup: %w", errs.NewTrusted(errNotFound, http.StatusNotFound)), errNotFound, http.StatusNotFound},
			{"unavailable", errs.NewUnavailable(context.DeadlineExceeded), context.DeadlineExceeded, http.StatusServiceUnavailable},
		}

		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s error.", testID, tst.name)
			{
				te := errs.GetTrusted(tst.err)
				if te == nil {
					t.Fatalf("\t%s\tTest %d:\tShould find the trusted error.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould find the trusted error.", success, testID)

				if te.Status != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould carry status %d, got %d.", failed, testID, tst.status, te.Status)
				}
				t.Logf("\t%s\tTest %d:\tShould carry status %d.", success, testID, tst.status)

				if !errors.Is(tst.err, tst.target) {
					t.Fatalf("\t%s\tTest %d:\tShould unwrap to the original error.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould unwrap to the original error.", success, testID)
			}
		}

		t.Logf("\tTest %d:\tWhen handling a plain error.", len(tt))
		{
			if errs.IsTrusted(errNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould not be trusted.", failed, len(tt))
			}
			t.Logf("\t%s\tTest %d:\tShould not be trusted.", success, len(tt))
		}
	}
}
