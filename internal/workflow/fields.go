package workflow

// Per-stage field whitelists. Only these keys are ever persisted for a stage
// record; unknown keys are dropped, not errored. stage_status carries the
// business status text (and is where cancel-like values are detected),
// owner_id names an explicit role owner for the stage.
var stageFields = map[Stage][]string{
	StagePSI: {
		"sent_date", "work_week", "turn_time", "sent_status",
		"disc_status", "btp_disc", "is_checked", "stage_status", "owner_id",
	},
	StageSampleDevelopment: {
		"tp_handoff_td", "fit_log_review", "fty_md", "fty_machine",
		"p3_reason", "remake_reason", "target_xfty", "actual_send",
		"fty_remark", "proceeded_date", "awb", "denver_status",
		"is_checked", "stage_status", "owner_id",
	},
	StagePCReview: {
		"target_1pc", "awb_inbound", "cbd_actual", "confirm_date",
		"reject_by_md", "review_comp", "md_int_review", "td_md_compare",
		"is_checked", "stage_status", "owner_id",
	},
	StageCosting: {
		"est_due_date", "fty_due_date", "due_week", "team_member",
		"ng_entry_date", "ownership", "sent_to_brand", "sent_status",
		"is_checked", "stage_status", "owner_id",
	},
	StageShipmentToBrand: {
		"sent_date", "awb_number", "awb_status", "arrival_week",
		"sent_status", "is_checked", "stage_status", "owner_id",
	},
}

var stageFieldSets = func() map[Stage]map[string]bool {
	m := make(map[Stage]map[string]bool, len(stageFields))
	for stage, keys := range stageFields {
		set := make(map[string]bool, len(keys))
		for _, k := range keys {
			set[k] = true
		}
		m[stage] = set
	}
	return m
}()

// StageFieldKeys returns the whitelist for the record backing the stage.
func StageFieldKeys(s Stage) []string {
	return stageFields[RecordStage(s)]
}

// FilterPayload keeps only whitelisted keys for the stage. The result is a new
// map; the input is never mutated.
func FilterPayload(s Stage, payload map[string]interface{}) map[string]interface{} {
	set := stageFieldSets[RecordStage(s)]
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if set[k] {
			out[k] = v
		}
	}
	return out
}
