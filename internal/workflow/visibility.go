package workflow

// Audit history visibility. Roles with end-to-end responsibility see the whole
// trail; everyone else sees only entries touching stages in their scope.

var fullHistoryRoles = map[string]bool{
	RoleAdmin:      true,
	RoleSuperAdmin: true,
	RolePBD:        true,
}

var roleHistoryScope = map[string][]Stage{
	RoleTD:      {StagePSI},
	RoleFTY:     {StageSampleDevelopment},
	RoleMD:      {StagePCReview},
	RoleCosting: {StageCosting},
	RoleBrand:   {StageShipmentToBrand, StageDeliveredConfirmation},
}

func CanSeeFullHistory(roleCode string) bool {
	return fullHistoryRoles[ResolveRole(roleCode)]
}

// AuditEntryVisible decides whether one audit row is visible to a role.
// stage is the row's stage label; for current_stage transition rows the old and
// new stage values are also candidates, so a role sees transitions into or out
// of its scope.
func AuditEntryVisible(roleCode, stage, fieldChanged, oldValue, newValue string) bool {
	role := ResolveRole(roleCode)
	if fullHistoryRoles[role] {
		return true
	}
	scope := roleHistoryScope[role]
	if len(scope) == 0 {
		return false
	}

	candidates := []Stage{NormalizeStage(stage)}
	if fieldChanged == "current_stage" {
		candidates = append(candidates, NormalizeStage(oldValue), NormalizeStage(newValue))
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, s := range scope {
			if s == c {
				return true
			}
		}
	}
	return false
}
