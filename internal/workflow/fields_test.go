package workflow

import "testing"

func TestFilterPayload_DropsUnknownKeysSilently(t *testing.T) {
	payload := map[string]interface{}{
		"sent_date":    "2026-02-10",
		"work_week":    "WW07",
		"dlrop_me":     "x",
		"current_tage": "costing",
	}
	got := FilterPayload(StagePSI, payload)
	if len(got) != 2 {
		t.Fatalf("expected 2 surviving keys, got %d: %v", len(got), got)
	}
	if got["sent_date"] != "2026-02-10" || got["work_week"] != "WW07" {
		t.Fatalf("whitelisted values lost: %v", got)
	}
}

func TestFilterPayload_DoesNotMutateInput(t *testing.T) {
	payload := map[string]interface{}{"sent_date": "2026-02-10", "junk": true}
	_ = FilterPayload(StagePSI, payload)
	if len(payload) != 2 {
		t.Fatalf("input payload mutated: %v", payload)
	}
}

func TestFilterPayload_IsIdempotent(t *testing.T) {
	payload := map[string]interface{}{
		"awb_number":  "123-45678901",
		"sent_status": "SENT",
		"noise":       1,
	}
	once := FilterPayload(StageShipmentToBrand, payload)
	twice := FilterPayload(StageShipmentToBrand, once)
	if len(once) != len(twice) {
		t.Fatalf("filter not idempotent: %v vs %v", once, twice)
	}
	for k, v := range once {
		if twice[k] != v {
			t.Fatalf("filter not idempotent on %q", k)
		}
	}
}

func TestStageFieldKeys_EveryRecordStageCarriesStatusAndOwner(t *testing.T) {
	for _, s := range RecordStages {
		keys := StageFieldKeys(s)
		var hasStatus, hasOwner bool
		for _, k := range keys {
			if k == "stage_status" {
				hasStatus = true
			}
			if k == "owner_id" {
				hasOwner = true
			}
		}
		if !hasStatus || !hasOwner {
			t.Fatalf("stage %q missing stage_status/owner_id in whitelist", s)
		}
	}
}
