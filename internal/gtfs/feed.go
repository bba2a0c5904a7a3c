// Package gtfs is the GTFS loader collaborator (spec §6): it turns a
// GTFS zip into plain records, and never talks to the routing engine's
// own data model directly — internal/transitdata does that assembly.
// Malformed rows are dropped with a warning rather than failing the
// whole parse (spec §7, DataInvariantViolation).
package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Agency is a row of agency.txt.
type Agency struct {
	AgencyID   string
	AgencyName string
	Timezone   string
}

// Stop is a row of stops.txt.
type Stop struct {
	StopID   string
	StopName string
	Lat      float64
	Lon      float64
}

// Route is a row of routes.txt.
type Route struct {
	RouteID   string
	AgencyID  string
	ShortName string
	LongName  string
	RouteType int
}

// Trip is a row of trips.txt.
type Trip struct {
	RouteID   string
	ServiceID string
	TripID    string
	Headsign  string
}

// StopTime is a row of stop_times.txt. Arrival/Departure are kept as
// the raw HH:MM:SS strings; ParseTimeToSeconds converts them.
type StopTime struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int
	PickupType    int
	DropOffType   int
}

// Feed is the parsed contents of one GTFS zip.
type Feed struct {
	Agencies  []Agency
	Stops     []Stop
	Routes    []Route
	Trips     []Trip
	StopTimes []StopTime
}

// ParseZip extracts and parses a GTFS zip into a Feed. stops.txt,
// routes.txt, trips.txt and stop_times.txt are required; agency.txt is
// optional.
func ParseZip(zipPath string) (*Feed, error) {
	tempDir, err := os.MkdirTemp("", "gtfs-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := extractZip(zipPath, tempDir); err != nil {
		return nil, fmt.Errorf("failed to extract zip: %w", err)
	}

	feed := &Feed{}

	if agencies, err := parseAgencies(filepath.Join(tempDir, "agency.txt")); err == nil {
		feed.Agencies = agencies
		log.Printf("gtfs: parsed %d agencies", len(agencies))
	} else {
		log.Printf("gtfs: agency.txt not parsed: %v", err)
	}

	stops, err := parseStops(filepath.Join(tempDir, "stops.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse stops (required): %w", err)
	}
	feed.Stops = stops
	log.Printf("gtfs: parsed %d stops", len(stops))

	routes, err := parseRoutes(filepath.Join(tempDir, "routes.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse routes (required): %w", err)
	}
	feed.Routes = routes
	log.Printf("gtfs: parsed %d routes", len(routes))

	trips, err := parseTrips(filepath.Join(tempDir, "trips.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse trips (required): %w", err)
	}
	feed.Trips = trips
	log.Printf("gtfs: parsed %d trips", len(trips))

	stopTimes, err := parseStopTimes(filepath.Join(tempDir, "stop_times.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse stop_times (required): %w", err)
	}
	feed.StopTimes = stopTimes
	log.Printf("gtfs: parsed %d stop_times", len(stopTimes))

	return feed, nil
}

func parseAgencies(filePath string) ([]Agency, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	header, colMap, r, err := openTable(file)
	if err != nil {
		return nil, err
	}
	_ = header

	var agencies []Agency
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("gtfs: skipping malformed agency row: %v", err)
			continue
		}
		agencies = append(agencies, Agency{
			AgencyID:   getField(record, colMap, "agency_id"),
			AgencyName: getField(record, colMap, "agency_name"),
			Timezone:   getField(record, colMap, "agency_timezone"),
		})
	}
	return agencies, nil
}

func parseStops(filePath string) ([]Stop, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	_, colMap, r, err := openTable(file)
	if err != nil {
		return nil, err
	}

	var stops []Stop
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("gtfs: skipping malformed stop row: %v", err)
			continue
		}

		stopID := getField(record, colMap, "stop_id")
		latStr := getField(record, colMap, "stop_lat")
		lonStr := getField(record, colMap, "stop_lon")
		if stopID == "" || latStr == "" || lonStr == "" {
			log.Printf("gtfs: skipping stop with missing required fields: %q", stopID)
			continue
		}

		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			log.Printf("gtfs: invalid latitude for stop %s: %v", stopID, err)
			continue
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			log.Printf("gtfs: invalid longitude for stop %s: %v", stopID, err)
			continue
		}

		stops = append(stops, Stop{
			StopID:   stopID,
			StopName: getField(record, colMap, "stop_name"),
			Lat:      lat,
			Lon:      lon,
		})
	}
	return stops, nil
}

func parseRoutes(filePath string) ([]Route, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	_, colMap, r, err := openTable(file)
	if err != nil {
		return nil, err
	}

	var routes []Route
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("gtfs: skipping malformed route row: %v", err)
			continue
		}

		routeID := getField(record, colMap, "route_id")
		if routeID == "" {
			continue
		}
		routeType, _ := strconv.Atoi(getField(record, colMap, "route_type"))

		routes = append(routes, Route{
			RouteID:   routeID,
			AgencyID:  getField(record, colMap, "agency_id"),
			ShortName: getField(record, colMap, "route_short_name"),
			LongName:  getField(record, colMap, "route_long_name"),
			RouteType: routeType,
		})
	}
	return routes, nil
}

func parseTrips(filePath string) ([]Trip, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	_, colMap, r, err := openTable(file)
	if err != nil {
		return nil, err
	}

	var trips []Trip
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("gtfs: skipping malformed trip row: %v", err)
			continue
		}

		tripID := getField(record, colMap, "trip_id")
		routeID := getField(record, colMap, "route_id")
		if tripID == "" || routeID == "" {
			continue
		}

		trips = append(trips, Trip{
			RouteID:   routeID,
			ServiceID: getField(record, colMap, "service_id"),
			TripID:    tripID,
			Headsign:  getField(record, colMap, "trip_headsign"),
		})
	}
	return trips, nil
}

func parseStopTimes(filePath string) ([]StopTime, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	_, colMap, r, err := openTable(file)
	if err != nil {
		return nil, err
	}

	var stopTimes []StopTime
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("gtfs: skipping malformed stop_time row: %v", err)
			continue
		}

		tripID := getField(record, colMap, "trip_id")
		stopID := getField(record, colMap, "stop_id")
		seqStr := getField(record, colMap, "stop_sequence")
		if tripID == "" || stopID == "" || seqStr == "" {
			continue
		}

		sequence, err := strconv.Atoi(seqStr)
		if err != nil {
			log.Printf("gtfs: invalid stop_sequence for trip %s: %v", tripID, err)
			continue
		}

		pickup, _ := strconv.Atoi(getField(record, colMap, "pickup_type"))
		dropOff, _ := strconv.Atoi(getField(record, colMap, "drop_off_type"))

		stopTimes = append(stopTimes, StopTime{
			TripID:        tripID,
			ArrivalTime:   getField(record, colMap, "arrival_time"),
			DepartureTime: getField(record, colMap, "departure_time"),
			StopID:        stopID,
			StopSequence:  sequence,
			PickupType:    pickup,
			DropOffType:   dropOff,
		})
	}
	return stopTimes, nil
}

// ParseTimeToSeconds converts a GTFS HH:MM:SS time (hours may exceed
// 23 for overnight service) into seconds since local midnight.
func ParseTimeToSeconds(hms string) (int, error) {
	parts := strings.Split(strings.TrimSpace(hms), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time format: %q", hms)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q: %w", hms, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q: %w", hms, err)
	}
	s, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q: %w", hms, err)
	}
	return h*3600 + m*60 + s, nil
}

func openTable(file *os.File) ([]string, map[string]int, *csv.Reader, error) {
	r := csv.NewReader(file)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	return header, makeColumnMap(header), r, nil
}

func makeColumnMap(header []string) map[string]int {
	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.TrimSpace(col)] = i
	}
	return colMap
}

func getField(record []string, colMap map[string]int, fieldName string) string {
	if idx, ok := colMap[fieldName]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func extractZip(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return err
		}
		destPath := filepath.Join(destDir, filepath.Base(file.Name))
		outFile, err := os.Create(destPath)
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(outFile, rc)
		rc.Close()
		outFile.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
