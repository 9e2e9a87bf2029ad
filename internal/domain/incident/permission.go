package incident

// Action names one of the six phase write operations.
type Action string

const (
	ActionCreateFirstInfo  Action = "phase1.create"
	ActionUpdateFirstInfo  Action = "phase1.update"
	ActionCreateSecondInfo Action = "phase2.create"
	ActionUpdateSecondInfo Action = "phase2.update"
	ActionCreateThirdInfo  Action = "phase3.create"
	ActionUpdateThirdInfo  Action = "phase3.update"
)

var AllActions = []Action{
	ActionCreateFirstInfo,
	ActionUpdateFirstInfo,
	ActionCreateSecondInfo,
	ActionUpdateSecondInfo,
	ActionCreateThirdInfo,
	ActionUpdateThirdInfo,
}

// Phase returns 1, 2 or 3.
func (a Action) Phase() int {
	switch a {
	case ActionCreateFirstInfo, ActionUpdateFirstInfo:
		return 1
	case ActionCreateSecondInfo, ActionUpdateSecondInfo:
		return 2
	case ActionCreateThirdInfo, ActionUpdateThirdInfo:
		return 3
	}
	return 0
}

func CanCreatePhase1(role Role) bool {
	switch role {
	case RoleSystemAdmin, RoleOfficeAdmin, RoleGeneralOffice:
		return true
	}
	return false
}

// CanUpdatePhase1 locks 1st info for GeneralOffice once 2nd info has started.
func CanUpdatePhase1(role Role, status Status, hasSecondInfo bool) bool {
	switch role {
	case RoleSystemAdmin, RoleOfficeAdmin:
		return true
	case RoleGeneralOffice:
		return status.InSecondInfo() && !hasSecondInfo
	}
	return false
}

func CanCreatePhase2(role Role, status Status, hasSecondInfo bool) bool {
	switch role {
	case RoleSystemAdmin, RoleOfficeAdmin, RoleThreePL:
		return status.InSecondInfo() && !hasSecondInfo
	}
	return false
}

// CanUpdatePhase2 locks 2nd info for ThreePL once 3rd info has started.
func CanUpdatePhase2(role Role, status Status, hasThirdInfo bool) bool {
	switch role {
	case RoleSystemAdmin, RoleOfficeAdmin:
		return true
	case RoleThreePL:
		return status.InThirdInfo() && !hasThirdInfo
	}
	return false
}

func CanCreatePhase3(role Role, status Status, hasThirdInfo bool) bool {
	switch role {
	case RoleSystemAdmin, RoleOfficeAdmin, RoleThreePL:
		return status.InThirdInfo() && !hasThirdInfo
	}
	return false
}

// CanUpdatePhase3 allows edits of a started 3rd info while it is completed, or while
// it is still under investigation with no measures written yet. The not-started
// branch only matches Completed, which the nested completeness rules make unreachable.
func CanUpdatePhase3(role Role, status Status, hasThirdInfo bool, measuresEmpty bool) bool {
	switch role {
	case RoleSystemAdmin, RoleOfficeAdmin, RoleThreePL:
	default:
		return false
	}

	if hasThirdInfo {
		return status == StatusCompleted || (status.InThirdInfo() && measuresEmpty)
	}
	return status == StatusCompleted
}

// Allowed dispatches to the rule for action, reading the flags from the snapshot.
func Allowed(action Action, role Role, status Status, s Snapshot) bool {
	switch action {
	case ActionCreateFirstInfo:
		return CanCreatePhase1(role)
	case ActionUpdateFirstInfo:
		return CanUpdatePhase1(role, status, s.SecondInfoStarted())
	case ActionCreateSecondInfo:
		return CanCreatePhase2(role, status, s.SecondInfoStarted())
	case ActionUpdateSecondInfo:
		return CanUpdatePhase2(role, status, s.ThirdInfoStarted())
	case ActionCreateThirdInfo:
		return CanCreatePhase3(role, status, s.ThirdInfoStarted())
	case ActionUpdateThirdInfo:
		return CanUpdatePhase3(role, status, s.ThirdInfoStarted(), s.RecurrenceMeasuresEmpty())
	}
	return false
}

// Permissions lists which actions role may take on an existing incident right now.
func Permissions(role Role, status Status, s Snapshot) map[Action]bool {
	out := make(map[Action]bool, len(AllActions))
	for _, action := range AllActions {
		out[action] = Allowed(action, role, status, s)
	}
	return out
}
