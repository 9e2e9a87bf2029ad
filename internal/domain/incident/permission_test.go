package incident

import (
	"errors"
	"testing"
)

var everyRole = []Role{RoleSystemAdmin, RoleOfficeAdmin, RoleGeneralOffice, RoleThreePL}

func TestCanCreatePhase1(t *testing.T) {
	want := map[Role]bool{
		RoleSystemAdmin:   true,
		RoleOfficeAdmin:   true,
		RoleGeneralOffice: true,
		RoleThreePL:       false,
		Role(0):           false,
		Role(9):           false,
	}
	for role, allowed := range want {
		if got := CanCreatePhase1(role); got != allowed {
			t.Fatalf("CanCreatePhase1(%s) = %v, want %v", role, got, allowed)
		}
	}
}

func TestCanUpdatePhase1(t *testing.T) {
	testCases := []struct {
		name      string
		role      Role
		status    Status
		hasPhase2 bool
		want      bool
	}{
		{"general office before phase 2", RoleGeneralOffice, StatusSecondInfoInvestigation, false, true},
		{"general office after phase 2 started", RoleGeneralOffice, StatusSecondInfoInvestigation, true, false},
		{"general office while delayed", RoleGeneralOffice, StatusSecondInfoDelayed, false, true},
		{"general office in third info", RoleGeneralOffice, StatusThirdInfoInvestigation, true, false},
		{"office admin completed", RoleOfficeAdmin, StatusCompleted, true, true},
		{"system admin delayed", RoleSystemAdmin, StatusThirdInfoDelayed, true, true},
		{"3pl never", RoleThreePL, StatusSecondInfoInvestigation, false, false},
		{"unknown role", Role(42), StatusSecondInfoInvestigation, false, false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := CanUpdatePhase1(testCase.role, testCase.status, testCase.hasPhase2)
			if got != testCase.want {
				t.Fatalf("CanUpdatePhase1() = %v, want %v", got, testCase.want)
			}
		})
	}
}

func TestCanCreatePhase2(t *testing.T) {
	for _, role := range []Role{RoleSystemAdmin, RoleOfficeAdmin, RoleThreePL} {
		if !CanCreatePhase2(role, StatusSecondInfoDelayed, false) {
			t.Fatalf("CanCreatePhase2(%s, delayed, not started) = false", role)
		}
		if CanCreatePhase2(role, StatusSecondInfoInvestigation, true) {
			t.Fatalf("CanCreatePhase2(%s, started) = true", role)
		}
		if CanCreatePhase2(role, StatusThirdInfoInvestigation, false) {
			t.Fatalf("CanCreatePhase2(%s, third info) = true", role)
		}
	}
	if CanCreatePhase2(RoleGeneralOffice, StatusSecondInfoInvestigation, false) {
		t.Fatalf("CanCreatePhase2(general office) = true")
	}
}

func TestCanUpdatePhase2(t *testing.T) {
	testCases := []struct {
		name      string
		role      Role
		status    Status
		hasPhase3 bool
		want      bool
	}{
		{"admin always", RoleOfficeAdmin, StatusCompleted, true, true},
		{"3pl in third info before phase 3", RoleThreePL, StatusThirdInfoInvestigation, false, true},
		{"3pl delayed before phase 3", RoleThreePL, StatusThirdInfoDelayed, false, true},
		{"3pl after phase 3 started", RoleThreePL, StatusThirdInfoInvestigation, true, false},
		{"3pl still in second info", RoleThreePL, StatusSecondInfoInvestigation, false, false},
		{"general office never", RoleGeneralOffice, StatusThirdInfoInvestigation, false, false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := CanUpdatePhase2(testCase.role, testCase.status, testCase.hasPhase3)
			if got != testCase.want {
				t.Fatalf("CanUpdatePhase2() = %v, want %v", got, testCase.want)
			}
		})
	}
}

func TestCanCreatePhase3(t *testing.T) {
	if !CanCreatePhase3(RoleThreePL, StatusThirdInfoDelayed, false) {
		t.Fatalf("CanCreatePhase3(3pl, delayed) = false")
	}
	if CanCreatePhase3(RoleThreePL, StatusThirdInfoInvestigation, true) {
		t.Fatalf("CanCreatePhase3(started) = true")
	}
	if CanCreatePhase3(RoleSystemAdmin, StatusSecondInfoInvestigation, false) {
		t.Fatalf("CanCreatePhase3(second info) = true")
	}
	if CanCreatePhase3(RoleGeneralOffice, StatusThirdInfoInvestigation, false) {
		t.Fatalf("CanCreatePhase3(general office) = true")
	}
}

func TestCanUpdatePhase3(t *testing.T) {
	testCases := []struct {
		name          string
		role          Role
		status        Status
		hasPhase3     bool
		measuresEmpty bool
		want          bool
	}{
		{"office admin completed with text", RoleOfficeAdmin, StatusCompleted, true, false, true},
		{"office admin completed without text", RoleOfficeAdmin, StatusCompleted, true, true, true},
		{"3pl investigating with empty text", RoleThreePL, StatusThirdInfoInvestigation, true, true, true},
		{"3pl investigating with text", RoleThreePL, StatusThirdInfoInvestigation, true, false, false},
		{"3pl delayed with empty text", RoleThreePL, StatusThirdInfoDelayed, true, true, true},
		{"not started and not completed", RoleSystemAdmin, StatusThirdInfoInvestigation, false, true, false},
		{"not started but completed", RoleSystemAdmin, StatusCompleted, false, true, true},
		{"second info status", RoleThreePL, StatusSecondInfoInvestigation, true, true, false},
		{"general office never", RoleGeneralOffice, StatusCompleted, true, true, false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := CanUpdatePhase3(testCase.role, testCase.status, testCase.hasPhase3, testCase.measuresEmpty)
			if got != testCase.want {
				t.Fatalf("CanUpdatePhase3() = %v, want %v", got, testCase.want)
			}
		})
	}
}

func TestAllowedMatchesDirectRules(t *testing.T) {
	snapshot := secondInfoComplete(date(2025, 1, 1), date(2025, 1, 2))
	snapshot.ThirdInputDate = timePtr(date(2025, 1, 3))

	for _, role := range everyRole {
		for _, status := range AllStatuses {
			perms := Permissions(role, status, snapshot)
			if perms[ActionUpdateThirdInfo] != CanUpdatePhase3(role, status, true, true) {
				t.Fatalf("Permissions(%s, %s) update third mismatch", role, status)
			}
			if perms[ActionCreateSecondInfo] {
				t.Fatalf("Permissions(%s, %s) allows create second after it started", role, status)
			}
		}
	}
}

func TestUnknownRoleDeniedEverywhere(t *testing.T) {
	for _, action := range AllActions {
		for _, status := range AllStatuses {
			if Allowed(action, Role(0), status, Snapshot{}) {
				t.Fatalf("Allowed(%s, role 0, %s) = true", action, status)
			}
		}
	}
}

func TestParseRole(t *testing.T) {
	testCases := map[string]Role{
		"1":               RoleSystemAdmin,
		"office_admin":    RoleOfficeAdmin,
		" General_Office": RoleGeneralOffice,
		"4":               RoleThreePL,
		"3PL":             RoleThreePL,
	}
	for raw, want := range testCases {
		got, err := ParseRole(raw)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %v, %v", raw, got, err)
		}
	}

	for _, raw := range []string{"", "5", "guest"} {
		if _, err := ParseRole(raw); !errors.Is(err, ErrUnknownRole) {
			t.Fatalf("ParseRole(%q) error = %v", raw, err)
		}
	}
}
