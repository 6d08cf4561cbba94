package workflow

import "strings"

// Role codes issued by the session provider.
const (
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
	RolePBD        = "PBD"
	RoleTD         = "TD"
	RoleFTY        = "FTY"
	RoleMD         = "MD"
	RoleCosting    = "COSTING"
	RoleBrand      = "BRAND"
)

// Legacy role codes still present on older tokens.
var legacyRoles = map[string]string{
	"PD":      RolePBD,
	"FACTORY": RoleFTY,
}

// roleStages maps a role onto the stages it may touch. A nil entry means all
// stages (full visibility).
var roleStages = map[string][]Stage{
	RoleAdmin:      nil,
	RoleSuperAdmin: nil,
	RoleBrand:      nil,
	RolePBD:        {StageCosting, StageShipmentToBrand, StageDeliveredConfirmation},
	RoleTD:         {StagePSI, StageSampleDevelopment, StagePCReview},
	RoleFTY:        {StageSampleDevelopment, StageCosting},
	RoleMD:         {StagePCReview},
	RoleCosting:    {StageCosting},
}

var adminRoles = map[string]bool{
	RoleAdmin:      true,
	RoleSuperAdmin: true,
}

func ResolveRole(roleCode string) string {
	code := strings.ToUpper(strings.TrimSpace(roleCode))
	if revised, ok := legacyRoles[code]; ok {
		return revised
	}
	return code
}

func IsAdmin(roleCode string) bool {
	return adminRoles[ResolveRole(roleCode)]
}

// StagesForRole returns the stages the role may see and write, or nil for all.
// Unknown roles get an empty, non-nil slice: they may touch nothing.
func StagesForRole(roleCode string) []Stage {
	resolved := ResolveRole(roleCode)
	stages, ok := roleStages[resolved]
	if !ok {
		return []Stage{}
	}
	return stages
}

func CanWriteStage(roleCode string, s Stage) bool {
	allowed := StagesForRole(roleCode)
	if allowed == nil {
		return true
	}
	for _, a := range allowed {
		if a == s {
			return true
		}
	}
	return false
}

// CanSeeStage mirrors CanWriteStage; the read path returns null placeholders
// for stages outside the caller's set.
func CanSeeStage(roleCode string, s Stage) bool {
	return CanWriteStage(roleCode, s)
}

// SampleManagerRoles may create, update and delete the sample record itself.
var sampleManagerRoles = map[string]bool{
	RoleAdmin:      true,
	RoleSuperAdmin: true,
	RolePBD:        true,
}

func CanManageSample(roleCode string) bool {
	return sampleManagerRoles[ResolveRole(roleCode)]
}
