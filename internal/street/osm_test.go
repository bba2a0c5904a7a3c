package street

import "testing"

func TestWalkableWayExclusions(t *testing.T) {
	cases := []struct {
		name string
		way  WayRecord
		want bool
	}{
		{"plain footway", WayRecord{Highway: "footway"}, true},
		{"motorway class rejected", WayRecord{Highway: "motorway"}, false},
		{"foot=no rejected", WayRecord{Highway: "residential", FootAccess: "no"}, false},
		{"foot=private rejected", WayRecord{Highway: "residential", FootAccess: "private"}, false},
		{"access=private rejected", WayRecord{Highway: "service", Access: "private"}, false},
		{"access=no rejected", WayRecord{Highway: "service", Access: "no"}, false},
		{"access=no but foot=yes allowed", WayRecord{Highway: "service", Access: "no", FootAccess: "yes"}, true},
		{"access=private but foot=designated allowed", WayRecord{Highway: "track", Access: "private", FootAccess: "designated"}, true},
		{"access=yes passes through", WayRecord{Highway: "residential", Access: "yes"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := walkable(tc.way); got != tc.want {
				t.Fatalf("walkable(%+v) = %v, want %v", tc.way, got, tc.want)
			}
		})
	}
}
