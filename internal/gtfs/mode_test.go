package gtfs

import (
	"testing"

	"github.com/hanroute/transit-engine/internal/model"
)

func TestSlackIndexForRouteType(t *testing.T) {
	cases := []struct {
		name      string
		routeType int
		want      model.SlackIndex
	}{
		{"subway", 1, model.SlackSubway},
		{"bus", 3, model.SlackBus},
		{"rail", 4, model.SlackRail},
		{"extended rail", 100, model.SlackRail},
		{"extended subway", 401, model.SlackSubway},
		{"extended bus", 700, model.SlackBus},
		{"extended other", 1100, model.SlackOther},
		{"unknown falls back to bus", 9999, model.SlackBus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SlackIndexForRouteType(tc.routeType)
			if got != tc.want {
				t.Fatalf("SlackIndexForRouteType(%d) = %v, want %v", tc.routeType, got, tc.want)
			}
		})
	}
}

func TestInferDisplayMode(t *testing.T) {
	cases := []struct {
		name      string
		routeType int
		want      model.TransitMode
	}{
		{"subway", 1, model.ModeSubwayDisplay},
		{"bus", 3, model.ModeBusDisplay},
		{"route_type 2 groups with subway", 2, model.ModeSubwayDisplay},
		{"commuter rail", 7, model.ModeRailDisplay},
		{"unknown falls back to bus", 9999, model.ModeBusDisplay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Route{RouteType: tc.routeType}
			got := InferDisplayMode(r)
			if got != tc.want {
				t.Fatalf("InferDisplayMode(routeType=%d) = %v, want %v", tc.routeType, got, tc.want)
			}
		})
	}
}
