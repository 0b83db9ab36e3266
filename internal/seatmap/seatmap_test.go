package seatmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
)

func TestResolve_Deterministic(t *testing.T) {
	layout := model.SeatLayout{Rows: []string{"A", "B"}, SeatsPerRow: 3}

	grid, err := Resolve(layout)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A1", "A2", "A3"}, {"B1", "B2", "B3"}}, grid)

	again, err := Resolve(layout)
	require.NoError(t, err)
	assert.Equal(t, grid, again)
}

func TestResolve_RejectsMalformed(t *testing.T) {
	cases := map[string]model.SeatLayout{
		"no rows":       {Rows: nil, SeatsPerRow: 10},
		"zero per row":  {Rows: []string{"A"}, SeatsPerRow: 0},
		"negative":      {Rows: []string{"A"}, SeatsPerRow: -2},
		"blank label":   {Rows: []string{"A", " "}, SeatsPerRow: 2},
		"duplicate row": {Rows: []string{"A", "B", "A"}, SeatsPerRow: 2},
		"digit suffix":  {Rows: []string{"A", "A1"}, SeatsPerRow: 12},
		"lower case":    {Rows: []string{"a", "b"}, SeatsPerRow: 3},
		"padded label":  {Rows: []string{"A", " B"}, SeatsPerRow: 3},
	}
	for name, layout := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(layout)
			assert.ErrorIs(t, err, ErrInvalidLayout)
		})
	}
}

func TestNormalizeRow(t *testing.T) {
	assert.Equal(t, "B", NormalizeRow(" b "))
	assert.Equal(t, "AA", NormalizeRow("aA"))
	assert.NoError(t, Validate(model.SeatLayout{Rows: []string{NormalizeRow("a"), NormalizeRow(" b")}, SeatsPerRow: 3}))
}

func TestContains(t *testing.T) {
	layout := model.SeatLayout{Rows: []string{"A", "AA"}, SeatsPerRow: 10}

	assert.True(t, Contains(layout, "A1"))
	assert.True(t, Contains(layout, "A10"))
	assert.True(t, Contains(layout, "AA3"))
	assert.False(t, Contains(layout, "A11"))
	assert.False(t, Contains(layout, "A0"))
	assert.False(t, Contains(layout, "A01"))
	assert.False(t, Contains(layout, "B1"))
	assert.False(t, Contains(layout, "A"))
}

func TestOccupancy(t *testing.T) {
	layout := model.SeatLayout{Rows: []string{"A", "B"}, SeatsPerRow: 3}
	bookings := []model.Booking{
		{Seats: []string{"A1", "A2"}, Status: model.StatusPending},
		{Seats: []string{"B3"}, Status: model.StatusConfirmed},
		{Seats: []string{"A3"}, Status: model.StatusCancelled},
	}

	grid, err := Occupancy(layout, bookings)
	require.NoError(t, err)
	require.Len(t, grid, 2)

	statuses := map[string]string{}
	for _, row := range grid {
		for _, s := range row {
			statuses[s.Number] = s.Status
		}
	}
	assert.Equal(t, map[string]string{
		"A1": StatusBooked, "A2": StatusBooked, "A3": StatusAvailable,
		"B1": StatusAvailable, "B2": StatusAvailable, "B3": StatusBooked,
	}, statuses)
	assert.Equal(t, "A1", grid[0][0].Number)
	assert.Equal(t, "B1", grid[1][0].Number)
}

func TestOccupancy_InvalidLayoutHasNoPartialResult(t *testing.T) {
	grid, err := Occupancy(model.SeatLayout{Rows: []string{"A"}}, nil)
	assert.ErrorIs(t, err, ErrInvalidLayout)
	assert.Nil(t, grid)
}
