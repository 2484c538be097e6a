package pricing

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"

	"carpool/internal/types"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		in        SplitInput
		wantPrice float64
		wantSplit float64
		wantEmpty int
	}{
		{
			name:      "fully booked pays base evenly",
			in:        SplitInput{Distances: []float64{2, 3, 4, 5}, AvailableSeats: 0, RatePerKm: 2000},
			wantPrice: 7000,
			wantSplit: 28000,
			wantEmpty: 0,
		},
		{
			// base 20000, 4 seats, 3 empty at 3000 each
			name:      "vacancy discounted",
			in:        SplitInput{Distances: []float64{10}, AvailableSeats: 3, RatePerKm: 2000},
			wantPrice: 11000,
			wantSplit: 11000,
			wantEmpty: 3,
		},
		{
			name:      "no accepted passengers",
			in:        SplitInput{AvailableSeats: 4, RatePerKm: 2000},
			wantPrice: 0,
			wantSplit: 0,
			wantEmpty: 4,
		},
		{
			// base 2000*4.1 = 8200, 3 seats, 1 empty: 8200 - 1640 = 6560 / 2
			name:      "default rate",
			in:        SplitInput{Distances: []float64{1.5, 2.6}, AvailableSeats: 1},
			wantPrice: 3280,
			wantSplit: 6560,
			wantEmpty: 1,
		},
		{
			// base 0.999, 3 seats, 2 empty at 0.1998: 0.5994
			name:      "rounds to cents",
			in:        SplitInput{Distances: []float64{0.333}, AvailableSeats: 2, RatePerKm: 3},
			wantPrice: 0.6,
			wantSplit: 0.5994,
			wantEmpty: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.in)
			if got.PricePerPassenger != tt.wantPrice {
				t.Errorf("PricePerPassenger = %v, want %v", got.PricePerPassenger, tt.wantPrice)
			}
			if math.Abs(got.AmountToSplit-tt.wantSplit) > 1e-6 {
				t.Errorf("AmountToSplit = %v, want %v", got.AmountToSplit, tt.wantSplit)
			}
			if got.EmptySeats != tt.wantEmpty {
				t.Errorf("EmptySeats = %d, want %d", got.EmptySeats, tt.wantEmpty)
			}
		})
	}
}

func TestSplitIsPure(t *testing.T) {
	in := SplitInput{Distances: []float64{3.2, 7.7, 1.1}, AvailableSeats: 2, RatePerKm: 2000}
	first := Split(in)
	for i := 0; i < 5; i++ {
		if got := Split(in); got != first {
			t.Fatalf("call %d: %+v != %+v", i, got, first)
		}
	}
	if in.Distances[0] != 3.2 || len(in.Distances) != 3 {
		t.Fatalf("input mutated: %v", in.Distances)
	}
}

func TestSplitFullDiscountsNothing(t *testing.T) {
	got := Split(SplitInput{Distances: []float64{4, 6}, AvailableSeats: 0, RatePerKm: 2000})
	if got.DiscountPerEmptySeat*float64(got.EmptySeats) != 0 || got.AmountToSplit != got.BasePrice {
		t.Fatalf("fully booked trip must not be discounted: %+v", got)
	}
}

func TestEstimate(t *testing.T) {
	s := NewService(nil, 0, "COP")
	got, err := s.Estimate(context.Background(), 12.35)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if got.Amount != 2470000 || got.Currency != "COP" {
		t.Fatalf("unexpected estimate %+v", got)
	}
	if _, err := s.Estimate(context.Background(), -1); !errors.Is(err, types.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPricePerPassenger(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()
	s := NewService(NewStore(mock), 2000, "COP")

	mock.ExpectQuery(`array_agg`).WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"available_seats", "distances"}).AddRow(3, []float64{10}))
	q, err := s.PricePerPassenger(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("price per passenger: %v", err)
	}
	if q.Price.Amount != 1100000 || q.Breakdown.TotalSeats != 4 || q.Breakdown.DiscountPerEmptySeat != 3000 {
		t.Fatalf("unexpected quote %+v", q)
	}

	mock.ExpectQuery(`array_agg`).WithArgs("trip-2").
		WillReturnRows(pgxmock.NewRows([]string{"available_seats", "distances"}).AddRow(4, []float64{}))
	q, err = s.PricePerPassenger(context.Background(), "trip-2")
	if err != nil {
		t.Fatalf("empty trip: %v", err)
	}
	if q.Price.Amount != 0 || q.Breakdown.Passengers != 0 {
		t.Fatalf("expected zero quote, got %+v", q)
	}

	mock.ExpectQuery(`array_agg`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	if _, err := s.PricePerPassenger(context.Background(), "missing"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
