package tripsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hanroute/transit-engine/internal/model"
)

func threeTripTimetable() *model.Timetable {
	mk := func(dep int, id string) model.TripSchedule {
		return model.NewTripSchedule([]int{dep, dep + 600}, []int{dep, dep + 600}, id)
	}
	return &model.Timetable{
		Trips: []model.TripSchedule{
			mk(9*3600, "t0900"),
			mk(9*3600+600, "t0910"),
			mk(9*3600+1200, "t0920"),
		},
	}
}

func TestForwardBoundary(t *testing.T) {
	tt := threeTripTimetable()
	s := NewSearcher()

	cases := []struct {
		name          string
		earliestBoard int
		wantFound     bool
		wantIndex     model.TripIndex
	}{
		{"exact first departure", 9 * 3600, true, 0},
		{"between first and second", 9*3600 + 300, true, 1},
		{"after last departure", 9*3600 + 1260, false, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := s.Forward(tt, 0, c.earliestBoard, -1)
			assert.Equal(t, c.wantFound, r.Found)
			if c.wantFound {
				assert.Equal(t, c.wantIndex, r.TripIndex)
			}
		})
	}
}

func TestForwardRespectsLimit(t *testing.T) {
	tt := threeTripTimetable()
	s := NewSearcher()

	r := s.Forward(tt, 0, 9*3600, 0)
	assert.True(t, r.Found)
	assert.Equal(t, model.TripIndex(0), r.TripIndex)

	r = s.Forward(tt, 0, 9*3600+1, 0)
	assert.False(t, r.Found)
}

func TestForwardResultMonotoneInEarliestBoard(t *testing.T) {
	tt := threeTripTimetable()
	s := NewSearcher()

	lastIndex := model.TripIndex(0)
	for teb := 9 * 3600; teb <= 9*3600+1200; teb += 60 {
		r := s.Forward(tt, 0, teb, -1)
		if !r.Found {
			break
		}
		assert.GreaterOrEqual(t, r.TripIndex, lastIndex, "trip index must never decrease as earliestBoard grows")
		lastIndex = r.TripIndex
	}
}

func TestReverseFindsLatestArrivable(t *testing.T) {
	tt := threeTripTimetable()
	s := NewSearcher()

	r := s.Reverse(tt, 1, 9*3600+901)
	assert.True(t, r.Found)
	assert.Equal(t, model.TripIndex(0), r.TripIndex)
}
