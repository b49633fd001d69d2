package response

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/simsta2/modus-klar/pkg/errors"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.SlotInvalid, http.StatusBadRequest},
		{errors.InvalidCredentials, http.StatusUnauthorized},
		{errors.ArtifactNotFound, http.StatusNotFound},
		{errors.ProgressBusy, http.StatusConflict},
		{errors.ArtifactReviewed, http.StatusConflict},
		{errors.OutsideWindow, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: connection refused", errors.StoreUnavailable), http.StatusServiceUnavailable},
		{stderrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := StatusOf(tc.err); got != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestDetailHidesInternalErrors(t *testing.T) {
	detail := detailOf(stderrors.New("pq: password authentication failed"))
	if detail.Code != "INTERNAL_ERROR" || detail.Message != "Internal server error" {
		t.Fatalf("unexpected detail %+v", detail)
	}

	detail = detailOf(fmt.Errorf("wrapped: %w", errors.EmailTaken))
	if detail.Code != "EMAIL_TAKEN" {
		t.Fatalf("unexpected detail %+v", detail)
	}
}
