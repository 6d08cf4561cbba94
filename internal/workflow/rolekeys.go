package workflow

// RoleKey is one of the six fixed workflow responsibilities tracked per sample,
// independent of the generic team assignment.
type RoleKey string

const (
	RoleKeySampleCreation RoleKey = "PBD_SAMPLE_CREATION"
	RoleKeyPSIIntake      RoleKey = "TD_PSI_INTAKE"
	RoleKeyDevelopment    RoleKey = "FTY_MD_DEVELOPMENT"
	RoleKeyDecision       RoleKey = "MD_M88_DECISION"
	RoleKeyCostSheet      RoleKey = "COSTING_TEAM_COST_SHEET"
	RoleKeyBrandTracking  RoleKey = "PBD_BRAND_TRACKING"
)

var RoleKeys = []RoleKey{
	RoleKeySampleCreation,
	RoleKeyPSIIntake,
	RoleKeyDevelopment,
	RoleKeyDecision,
	RoleKeyCostSheet,
	RoleKeyBrandTracking,
}

// stageRoleKeys binds each record stage to the responsibility it implies and
// the role that naturally holds it.
var stageRoleKeys = map[Stage]struct {
	Key         RoleKey
	NaturalRole string
}{
	StagePSI:               {RoleKeyPSIIntake, RoleTD},
	StageSampleDevelopment: {RoleKeyDevelopment, RoleFTY},
	StagePCReview:          {RoleKeyDecision, RoleMD},
	StageCosting:           {RoleKeyCostSheet, RoleCosting},
	StageShipmentToBrand:   {RoleKeyBrandTracking, RolePBD},
}

// RoleKeyForStage returns the role-key a stage write implies, and whether the
// stage carries one.
func RoleKeyForStage(s Stage) (RoleKey, bool) {
	b, ok := stageRoleKeys[RecordStage(s)]
	return b.Key, ok
}

// NaturalRoleForStage is the role whose members own the stage by default.
func NaturalRoleForStage(s Stage) string {
	return stageRoleKeys[RecordStage(s)].NaturalRole
}
