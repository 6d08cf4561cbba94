package workflow

import "testing"

func TestRoleKeyForStage_BindsEveryRecordStage(t *testing.T) {
	want := map[Stage]RoleKey{
		StagePSI:               RoleKeyPSIIntake,
		StageSampleDevelopment: RoleKeyDevelopment,
		StagePCReview:          RoleKeyDecision,
		StageCosting:           RoleKeyCostSheet,
		StageShipmentToBrand:   RoleKeyBrandTracking,
	}
	for stage, key := range want {
		got, ok := RoleKeyForStage(stage)
		if !ok || got != key {
			t.Fatalf("RoleKeyForStage(%q) = %q, %v, want %q", stage, got, ok, key)
		}
	}
}

func TestRoleKeyForStage_DeliveredConfirmationSharesShipmentKey(t *testing.T) {
	got, ok := RoleKeyForStage(StageDeliveredConfirmation)
	if !ok || got != RoleKeyBrandTracking {
		t.Fatalf("RoleKeyForStage(delivered_confirmation) = %q, %v", got, ok)
	}
}

func TestNaturalRoleForStage(t *testing.T) {
	want := map[Stage]string{
		StagePSI:                   RoleTD,
		StageSampleDevelopment:     RoleFTY,
		StagePCReview:              RoleMD,
		StageCosting:               RoleCosting,
		StageShipmentToBrand:       RolePBD,
		StageDeliveredConfirmation: RolePBD,
	}
	for stage, role := range want {
		if got := NaturalRoleForStage(stage); got != role {
			t.Fatalf("NaturalRoleForStage(%q) = %q, want %q", stage, got, role)
		}
	}
}
