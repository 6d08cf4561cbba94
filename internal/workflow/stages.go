package workflow

import "strings"

// Stage is one step in the fixed sample workflow. Names are stored lower-case
// with underscores; inputs are normalized before comparison.
type Stage string

const (
	StagePSI                   Stage = "psi"
	StageSampleDevelopment     Stage = "sample_development"
	StagePCReview              Stage = "pc_review"
	StageCosting               Stage = "costing"
	StageShipmentToBrand       Stage = "shipment_to_brand"
	StageDeliveredConfirmation Stage = "delivered_confirmation"
)

// StageOrder is the total order of the workflow. DeliveredConfirmation is
// terminal and virtual: it is a real step in the order but persists against the
// shipment_to_brand record.
var StageOrder = []Stage{
	StagePSI,
	StageSampleDevelopment,
	StagePCReview,
	StageCosting,
	StageShipmentToBrand,
	StageDeliveredConfirmation,
}

// RecordStages are the stages with their own stage record. Read responses key
// on these so the shape is stable regardless of caller.
var RecordStages = []Stage{
	StagePSI,
	StageSampleDevelopment,
	StagePCReview,
	StageCosting,
	StageShipmentToBrand,
}

var stageIndex = func() map[Stage]int {
	m := make(map[Stage]int, len(StageOrder))
	for i, s := range StageOrder {
		m[s] = i
	}
	return m
}()

// NormalizeStage lower-cases and collapses spaces/hyphens to underscores.
// Returns "" for empty input.
func NormalizeStage(raw string) Stage {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.ReplaceAll(v, "-", "_")
	v = strings.Join(strings.Fields(v), "_")
	return Stage(v)
}

func KnownStage(s Stage) bool {
	_, ok := stageIndex[s]
	return ok
}

// RecordStage maps a stage onto the record it persists against.
// delivered_confirmation shares the shipment_to_brand record.
func RecordStage(s Stage) Stage {
	if s == StageDeliveredConfirmation {
		return StageShipmentToBrand
	}
	return s
}

// Next returns the unique successor in the fixed order, or "" from the
// terminal stage or an unknown stage.
func Next(s Stage) Stage {
	idx, ok := stageIndex[s]
	if !ok || idx >= len(StageOrder)-1 {
		return ""
	}
	return StageOrder[idx+1]
}

func Terminal(s Stage) bool {
	return s == StageDeliveredConfirmation
}

// Before reports whether a comes strictly before b in the workflow order.
// Unknown stages compare before everything.
func Before(a, b Stage) bool {
	return stageIndex[a] < stageIndex[b]
}
