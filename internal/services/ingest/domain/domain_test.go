package domain_test

import (
	"testing"
	"time"

	perr "lakefill/internal/platform/errors"
	"lakefill/internal/services/ingest/domain"
)

func TestSinkKey_PadsEveryPart(t *testing.T) {
	h := domain.Hour{Year: 2023, Month: 1, Day: 1, Hour: 12}
	want := "github-archive/2023/01/01/12.json.gz"
	if got := domain.SinkKey("github-archive", h); got != want {
		t.Fatalf("expected %q got %q", want, got)
	}

	early := domain.Hour{Year: 2024, Month: 3, Day: 5, Hour: 7}
	want = "gharchive/events/2024/03/05/07.json.gz"
	if got := domain.SinkKey("gharchive/events", early); got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestSinkKey_DeterministicForSameHour(t *testing.T) {
	h := domain.Hour{Year: 2023, Month: 1, Day: 1, Hour: 12}
	first := domain.SinkKey("github-archive", h)
	second := domain.SinkKey("github-archive", h)
	if first != second {
		t.Fatalf("expected stable key, got %q then %q", first, second)
	}
}

func TestNewHour_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("plus2", 2*3600)
	h := domain.NewHour(time.Date(2023, 6, 1, 1, 30, 0, 0, loc))
	want := domain.Hour{Year: 2023, Month: 5, Day: 31, Hour: 23}
	if h != want {
		t.Fatalf("expected %+v got %+v", want, h)
	}
}

func TestHour_UTCRoundTrips(t *testing.T) {
	h := domain.Hour{Year: 2023, Month: 1, Day: 1, Hour: 5}
	if got := domain.NewHour(h.UTC()); got != h {
		t.Fatalf("expected %+v got %+v", h, got)
	}
}

func TestParseHour_AcceptsCLIForm(t *testing.T) {
	h, err := domain.ParseHour("2023-01-01T12")
	if err != nil {
		t.Fatalf("expected parse, got %v", err)
	}
	want := domain.Hour{Year: 2023, Month: 1, Day: 1, Hour: 12}
	if h != want {
		t.Fatalf("expected %+v got %+v", want, h)
	}
	if got := h.String(); got != "2023-01-01T12" {
		t.Fatalf("expected round trip got %q", got)
	}
}

func TestParseHour_RejectsMalformedInput(t *testing.T) {
	for _, in := range []string{
		"2023-01-01",
		"2023-1-1T5",
		"2023-01-01T24",
		"bogus",
	} {
		if _, err := domain.ParseHour(in); err == nil {
			t.Fatalf("expected %q to be rejected", in)
		} else if perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
			t.Fatalf("expected invalid argument for %q got %v", in, err)
		}
	}
}
