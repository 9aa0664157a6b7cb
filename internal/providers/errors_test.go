package providers

import (
	"errors"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorType
	}{
		{errors.New("insufficient_quota: no credits left"), ErrorQuota},
		{errors.New("status 429 too many requests"), ErrorRate},
		{errors.New("prompt context too long"), ErrorContext},
		{errors.New("service temporarily unavailable"), ErrorTransient},
		{errors.New("invalid api key"), ErrorPermanent},
		{nil, ""},
	}
	for _, c := range cases {
		if got := ClassifyError(c.err); got != c.want {
			t.Fatalf("ClassifyError(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}
