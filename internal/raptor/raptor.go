// Package raptor implements the round-based earliest-arrival search of
// spec §4.5 (C6): a multi-round sweep over transit patterns with
// marked-stop propagation, binary trip search at each boarding
// attempt, and back-pointer chains a later path-reconstruction stage
// can walk. All per-query state (round labels, back-pointers, marked
// stops) is allocated fresh by Run and never shared between queries —
// Transit Data itself is read-only (spec §5).
package raptor

import (
	"context"
	"math"
	"sort"

	"github.com/hanroute/transit-engine/internal/model"
	"github.com/hanroute/transit-engine/internal/transitdata"
	"github.com/hanroute/transit-engine/internal/tripsearch"
)

// Infinity stands in for the "not yet reached" arrival time; real
// times of day fit comfortably under it even for multi-day overnight
// trips (model.TripSchedule times may exceed 86400).
const Infinity = math.MaxInt32 / 2

const (
	// DefaultMaxRounds is R = 1 + numberOfAdditionalTransfers, with the
	// spec's default of up to 3 transfers.
	DefaultMaxRounds = 4
	// DefaultSearchWindowSeconds is the width of the post-hoc filter
	// applied to first-boarding times.
	DefaultSearchWindowSeconds = 900
)

// Config bounds a single search.
type Config struct {
	MaxRounds           int
	SearchWindowSeconds int
}

func DefaultConfig() Config {
	return Config{MaxRounds: DefaultMaxRounds, SearchWindowSeconds: DefaultSearchWindowSeconds}
}

// BackPointerKind tags which of the three leg types set a label.
type BackPointerKind int8

const (
	BackNone BackPointerKind = iota
	BackAccess
	BackBoard
	BackTransfer
)

// BackPointer carries enough information to reconstruct the leg that
// produced a label, per spec §4.5's backPtr state.
type BackPointer struct {
	Kind        BackPointerKind
	FromStop    model.StopIndex
	Pattern     model.PatternIndex
	Trip        model.TripIndex
	BoardStop   model.StopIndex
	BoardPos    int
	AlightPos   int
	WalkSeconds int
}

// Result is the full per-query state a caller needs to reconstruct
// itineraries for any reached stop.
type Result struct {
	T0           int
	BestArrival  []int
	RoundArrival [][]int
	BackPtr      [][]BackPointer
	RoundsRun    int
	TimedOut     bool
}

// Run executes the round-based search from the given access records at
// departure time t0. egress may be nil; when supplied it enables
// target-stop pruning (spec §4.5) keyed off the egress stops' walk
// durations. The deadline on ctx is checked between rounds only, so a
// Result always reflects complete rounds; TimedOut is set when the
// search stopped early.
func Run(ctx context.Context, data *transitdata.TransitData, access []model.AccessRecord, egress []model.EgressRecord, t0 int, cfg Config) *Result {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	n := data.NumStops()

	bestArrival := make([]int, n)
	for i := range bestArrival {
		bestArrival[i] = Infinity
	}

	roundArrival := make([][]int, cfg.MaxRounds+1)
	backPtr := make([][]BackPointer, cfg.MaxRounds+1)
	for k := range roundArrival {
		roundArrival[k] = make([]int, n)
		for i := range roundArrival[k] {
			roundArrival[k][i] = Infinity
		}
		backPtr[k] = make([]BackPointer, n)
	}

	egressDur := make(map[model.StopIndex]int, len(egress))
	for _, e := range egress {
		if d, ok := egressDur[e.Stop]; !ok || e.DurationSec < d {
			egressDur[e.Stop] = e.DurationSec
		}
	}
	bestAtAnyEgress := Infinity

	markedSeen := make([]bool, n)
	var markedList []model.StopIndex

	mark := func(s model.StopIndex) {
		if !markedSeen[s] {
			markedSeen[s] = true
			markedList = append(markedList, s)
		}
	}

	// Round 0: access records seed roundArrival[0] directly.
	for _, a := range access {
		arr := t0 + a.DurationSec
		if arr < roundArrival[0][a.Stop] {
			roundArrival[0][a.Stop] = arr
		}
		if arr < bestArrival[a.Stop] {
			bestArrival[a.Stop] = arr
		}
		backPtr[0][a.Stop] = BackPointer{Kind: BackAccess, WalkSeconds: a.DurationSec}
		mark(a.Stop)
	}

	searcher := tripsearch.NewSearcher()
	roundsRun := 0
	timedOut := false

	for round := 1; round <= cfg.MaxRounds; round++ {
		if len(markedList) == 0 {
			break
		}
		if ctx.Err() != nil {
			timedOut = true
			break
		}
		roundsRun = round

		sort.Slice(markedList, func(i, j int) bool { return markedList[i] < markedList[j] })

		// Phase A setup: Q = {(pattern, earliestPosition)}, earliest
		// position kept per pattern across every marked stop that
		// touches it.
		qPos := make(map[model.PatternIndex]int)
		var qOrder []model.PatternIndex
		for _, s := range markedList {
			for _, p := range data.PatternsAtStop(s) {
				pos := data.Pattern(p).PositionOf(s)
				if pos < 0 {
					continue
				}
				if existing, ok := qPos[p]; !ok || pos < existing {
					if !ok {
						qOrder = append(qOrder, p)
					}
					qPos[p] = pos
				}
			}
		}
		sort.Slice(qOrder, func(i, j int) bool { return qOrder[i] < qOrder[j] })

		markedSeen = make([]bool, n)
		markedList = nil
		improved := make([]bool, n)

		// Phase A: scan transit patterns.
		for _, p := range qOrder {
			pattern := data.Pattern(p)
			timetable := data.Timetable(p)

			boarded := false
			var boardedTrip model.TripIndex
			var boardStop model.StopIndex
			var boardPos int

			for i := qPos[p]; i < pattern.NumStops(); i++ {
				s := pattern.StopAt(i)

				if boarded && pattern.CanAlightAt(i) {
					trip := timetable.Trip(boardedTrip)
					a := trip.Arrival(i) + data.Slack.AlightSlack(pattern.SlackIndex())
					if a < bestArrival[s] && a < roundArrival[round][s] {
						bestArrival[s] = a
						roundArrival[round][s] = a
						backPtr[round][s] = BackPointer{
							Kind:      BackBoard,
							Pattern:   p,
							Trip:      boardedTrip,
							BoardStop: boardStop,
							BoardPos:  boardPos,
							AlightPos: i,
						}
						improved[s] = true
						if !prunedAtEgress(s, a, egressDur, bestAtAnyEgress) {
							mark(s)
						}
					}
				}

				prevArrival := roundArrival[round-1][s]
				if pattern.CanBoardAt(i) && prevArrival < Infinity {
					teb := prevArrival + data.Slack.BoardSlack(pattern.SlackIndex())
					limit := model.TripIndex(-1)
					if boarded {
						limit = boardedTrip
					}
					res := searcher.Forward(timetable, i, teb, limit)
					if res.Found {
						switchTo := !boarded || res.TripIndex < boardedTrip ||
							(res.TripIndex == boardedTrip && i < boardPos)
						if switchTo {
							boarded = true
							boardedTrip = res.TripIndex
							boardStop = s
							boardPos = i
						}
					}
				}
			}
		}

		// Phase B: foot transfers from stops improved in phase A of
		// this round. A transfer may only originate from such a stop —
		// two consecutive transfers without an intervening boarding
		// are forbidden by construction, since Phase B never marks a
		// stop as "improved-by-boarding".
		transferSlack := data.Slack.TransferSlack()
		for s := 0; s < n; s++ {
			if !improved[s] {
				continue
			}
			from := model.StopIndex(s)
			for _, tr := range data.TransfersFromStop(from) {
				a := roundArrival[round][from] + tr.DurationSec + transferSlack
				if a < bestArrival[tr.ToStop] && a < roundArrival[round][tr.ToStop] {
					bestArrival[tr.ToStop] = a
					roundArrival[round][tr.ToStop] = a
					backPtr[round][tr.ToStop] = BackPointer{Kind: BackTransfer, FromStop: from, WalkSeconds: tr.DurationSec}
					if !prunedAtEgress(tr.ToStop, a, egressDur, bestAtAnyEgress) {
						mark(tr.ToStop)
					}
				}
			}
		}

		if len(egressDur) > 0 {
			for s, d := range egressDur {
				if bestArrival[s] >= Infinity {
					continue
				}
				if projected := bestArrival[s] + d; projected < bestAtAnyEgress {
					bestAtAnyEgress = projected
				}
			}
		}
	}

	return &Result{
		T0:           t0,
		BestArrival:  bestArrival,
		RoundArrival: roundArrival,
		BackPtr:      backPtr,
		RoundsRun:    roundsRun,
		TimedOut:     timedOut,
	}
}

// prunedAtEgress reports whether a candidate label at an egress stop
// cannot possibly beat the best known egress arrival, per spec §4.5's
// target-stop pruning. Only suppresses onward marking; the label
// itself has already been recorded by the caller (invariant P1).
func prunedAtEgress(s model.StopIndex, arrival int, egressDur map[model.StopIndex]int, bestAtAnyEgress int) bool {
	d, ok := egressDur[s]
	if !ok {
		return false
	}
	return arrival+d >= bestAtAnyEgress
}
