package transitdata

import (
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/hanroute/transit-engine/internal/gtfs"
	"github.com/hanroute/transit-engine/internal/model"
)

const (
	defaultMaxTransferDistanceMeters = 500.0
	defaultWalkSpeedMPS              = 1.2
)

// BuildOptions controls transfer generation; everything else in the
// build is derived straight from the feed.
type BuildOptions struct {
	MaxTransferDistanceMeters float64
	WalkSpeedMPS              float64
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		MaxTransferDistanceMeters: defaultMaxTransferDistanceMeters,
		WalkSpeedMPS:              defaultWalkSpeedMPS,
	}
}

// rawStopTime is a stop_time row with its GTFS time fields already
// converted to seconds since midnight.
type rawStopTime struct {
	stopID       string
	sequence     int
	arrivalSec   int
	departureSec int
	pickupType   int
	dropOffType  int
}

// Build assembles a TransitData from a parsed GTFS feed: stops,
// pattern grouping, FIFO-safe timetables, the stop-to-pattern index,
// and transfers. Malformed rows are dropped with a warning and counted
// rather than failing the build (spec §7, DataInvariantViolation).
func Build(feed *gtfs.Feed, opts BuildOptions) (*TransitData, error) {
	if opts.MaxTransferDistanceMeters <= 0 {
		opts.MaxTransferDistanceMeters = defaultMaxTransferDistanceMeters
	}
	if opts.WalkSpeedMPS <= 0 {
		opts.WalkSpeedMPS = defaultWalkSpeedMPS
	}

	stopIndexByID := make(map[string]model.StopIndex, len(feed.Stops))
	stops := model.NewStops(len(feed.Stops))
	for i, s := range feed.Stops {
		idx := model.StopIndex(i)
		stopIndexByID[s.StopID] = idx
		stops.Names[i] = s.StopName
		stops.Lats[i] = s.Lat
		stops.Lons[i] = s.Lon
	}

	routeByID := make(map[string]gtfs.Route, len(feed.Routes))
	for _, r := range feed.Routes {
		routeByID[r.RouteID] = r
	}

	tripRoute := make(map[string]string, len(feed.Trips))
	for _, t := range feed.Trips {
		tripRoute[t.TripID] = t.RouteID
	}

	tripStopTimes := make(map[string][]rawStopTime, len(feed.Trips))
	dropped := 0
	for _, st := range feed.StopTimes {
		if _, ok := stopIndexByID[st.StopID]; !ok {
			dropped++
			continue
		}
		arr, err1 := gtfs.ParseTimeToSeconds(st.ArrivalTime)
		dep, err2 := gtfs.ParseTimeToSeconds(st.DepartureTime)
		if err1 != nil || err2 != nil || arr < 0 || dep < 0 || dep < arr {
			dropped++
			continue
		}
		tripStopTimes[st.TripID] = append(tripStopTimes[st.TripID], rawStopTime{
			stopID:       st.StopID,
			sequence:     st.StopSequence,
			arrivalSec:   arr,
			departureSec: dep,
			pickupType:   st.PickupType,
			dropOffType:  st.DropOffType,
		})
	}
	if dropped > 0 {
		log.Printf("transitdata: dropped %d invalid stop_time rows", dropped)
	}
	for tripID := range tripStopTimes {
		sts := tripStopTimes[tripID]
		sort.Slice(sts, func(i, j int) bool { return sts[i].sequence < sts[j].sequence })
		tripStopTimes[tripID] = sts
	}

	// Group trips into patterns keyed by (route_id, ordered stop id sequence).
	type patternGroup struct {
		routeID string
		stopSeq []string
		stopIdx []model.StopIndex
		tripIDs []string
	}
	groups := make(map[string]*patternGroup)
	var groupOrder []string

	for _, trip := range feed.Trips {
		sts := tripStopTimes[trip.TripID]
		if len(sts) < 2 {
			continue
		}
		stopSeq := make([]string, len(sts))
		stopIdx := make([]model.StopIndex, len(sts))
		for i, st := range sts {
			stopSeq[i] = st.stopID
			stopIdx[i] = stopIndexByID[st.stopID]
		}
		key := trip.RouteID + "|" + strings.Join(stopSeq, ",")
		g, ok := groups[key]
		if !ok {
			g = &patternGroup{routeID: trip.RouteID, stopSeq: stopSeq, stopIdx: stopIdx}
			groups[key] = g
			groupOrder = append(groupOrder, key)
		}
		g.tripIDs = append(g.tripIDs, trip.TripID)
	}

	var routes []model.Route
	emptyPatterns := 0
	splitPatterns := 0

	for _, key := range groupOrder {
		g := groups[key]
		route := routeByID[g.routeID]
		slackIdx := gtfs.SlackIndexForRouteType(route.RouteType)
		mode := gtfs.InferDisplayMode(route)

		// Sort trips within the pattern by first departure time.
		sort.Slice(g.tripIDs, func(i, j int) bool {
			return tripStopTimes[g.tripIDs[i]][0].departureSec < tripStopTimes[g.tripIDs[j]][0].departureSec
		})

		canBoard, canAlight := derivePickupDropoff(tripStopTimes[g.tripIDs[0]])

		// Split into FIFO-safe sub-patterns: a trip only joins the
		// current sub-pattern if its departure at every position is
		// >= the previous trip's (spec §3, Timetable invariant).
		var subPatterns [][]string
		var current []string
		var last []rawStopTime
		for _, tripID := range g.tripIDs {
			sts := tripStopTimes[tripID]
			fifo := true
			if last != nil {
				for i := range sts {
					if sts[i].departureSec < last[i].departureSec {
						fifo = false
						break
					}
				}
			}
			if !fifo {
				subPatterns = append(subPatterns, current)
				current = nil
			}
			current = append(current, tripID)
			last = sts
		}
		if len(current) > 0 {
			subPatterns = append(subPatterns, current)
		}
		if len(subPatterns) > 1 {
			splitPatterns++
		}

		for si, tripIDs := range subPatterns {
			if len(tripIDs) == 0 {
				emptyPatterns++
				continue
			}
			trips := make([]model.TripSchedule, len(tripIDs))
			for ti, tripID := range tripIDs {
				sts := tripStopTimes[tripID]
				arr := make([]int, len(sts))
				dep := make([]int, len(sts))
				for i, st := range sts {
					arr[i] = st.arrivalSec
					dep[i] = st.departureSec
				}
				trips[ti] = model.NewTripSchedule(arr, dep, tripID)
			}

			debugTag := g.routeID
			if len(subPatterns) > 1 {
				debugTag = g.routeID + "#" + strconv.Itoa(si+1)
			}

			pattern := model.Pattern{
				Index:        model.PatternIndex(len(routes)),
				StopSequence: g.stopIdx,
				SlackIdx:     slackIdx,
				DebugTag:     debugTag,
				CanBoard:     canBoard,
				CanAlight:    canAlight,
			}

			routes = append(routes, model.Route{
				ID:        route.RouteID,
				ShortName: route.ShortName,
				LongName:  route.LongName,
				RouteType: route.RouteType,
				Mode:      mode,
				Pattern:   pattern,
				Timetable: model.Timetable{Trips: trips},
			})
		}
	}

	if emptyPatterns > 0 {
		log.Printf("transitdata: dropped %d empty patterns", emptyPatterns)
	}
	if splitPatterns > 0 {
		log.Printf("transitdata: split %d patterns to preserve FIFO timetable ordering", splitPatterns)
	}

	for i := range routes {
		p := model.PatternIndex(i)
		for _, s := range routes[i].Pattern.StopSequence {
			stops.PatternsAt[s] = appendDedup(stops.PatternsAt[s], p)
		}
	}

	data := &TransitData{
		Stops:         stops,
		Routes:        routes,
		Slack:         model.DefaultSlackTable(),
		StopIndexByID: stopIndexByID,
	}

	transfersFrom, transfersTo := buildTransfers(stops, opts.MaxTransferDistanceMeters, opts.WalkSpeedMPS)
	data.TransfersFrom = transfersFrom
	data.TransfersTo = transfersTo

	log.Printf("transitdata: built %d patterns over %d stops", len(routes), stops.Len())
	return data, nil
}

func derivePickupDropoff(sts []rawStopTime) (canBoard, canAlight []bool) {
	n := len(sts)
	needsBoard := false
	needsAlight := false
	for i, st := range sts {
		if st.pickupType == 1 && i != n-1 {
			needsBoard = true
		}
		if st.dropOffType == 1 && i != 0 {
			needsAlight = true
		}
	}
	if !needsBoard && !needsAlight {
		return nil, nil
	}
	canBoard = make([]bool, n)
	canAlight = make([]bool, n)
	for i, st := range sts {
		canBoard[i] = i < n-1 && st.pickupType != 1
		canAlight[i] = i > 0 && st.dropOffType != 1
	}
	return canBoard, canAlight
}

func appendDedup(list []model.PatternIndex, p model.PatternIndex) []model.PatternIndex {
	for _, existing := range list {
		if existing == p {
			return list
		}
	}
	return append(list, p)
}
