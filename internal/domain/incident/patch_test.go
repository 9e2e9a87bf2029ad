package incident

import "testing"

func strPtr(value string) *string {
	return &value
}

func TestClassifyPatch(t *testing.T) {
	qty := 3

	testCases := []struct {
		name       string
		patch      Patch
		attributed int
		mixed      bool
	}{
		{name: "empty", patch: Patch{}, attributed: 0},
		{name: "blank strings are not sent", patch: Patch{Details: strPtr("  "), Cause: strPtr("")}, attributed: 0},
		{name: "first only", patch: Patch{Details: strPtr("box crushed"), Quantity: &qty}, attributed: 1},
		{name: "second only", patch: Patch{Cause: strPtr("rain")}, attributed: 2},
		{name: "third only", patch: Patch{RecurrencePreventionMeasures: strPtr("cover pallets")}, attributed: 3},
		{name: "second and third", patch: Patch{Cause: strPtr("rain"), ThirdInputDate: timePtr(date(2025, 1, 1))}, attributed: 3},
		{name: "first with second", patch: Patch{Details: strPtr("x"), ProcessDescription: strPtr("y")}, attributed: 2, mixed: true},
		{name: "first with third", patch: Patch{OrganizationID: new(int64), RecurrencePreventionMeasures: strPtr("z")}, attributed: 3, mixed: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := ClassifyPatch(testCase.patch)
			if got.Attributed() != testCase.attributed {
				t.Fatalf("Attributed() = %d, want %d", got.Attributed(), testCase.attributed)
			}
			if got.Mixed() != testCase.mixed {
				t.Fatalf("Mixed() = %v, want %v", got.Mixed(), testCase.mixed)
			}
			if got.Empty() != (testCase.attributed == 0) {
				t.Fatalf("Empty() = %v", got.Empty())
			}
		})
	}
}
