package api

import "testing"

func TestPayloadValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload Validator
		wantErr bool
	}{
		{"move ok", MoveToPayload{EntityID: 1, Target: TilePos{TX: 3, TY: 4}}, false},
		{"move to origin ok", MoveToPayload{EntityID: 1}, false},
		{"move missing entity", MoveToPayload{Target: TilePos{TX: 3, TY: 4}}, true},
		{"move negative target", MoveToPayload{EntityID: 1, Target: TilePos{TX: -1, TY: 0}}, true},

		{"found city ok", FoundCityPayload{EntityID: 2, Name: "Roma"}, false},
		{"found city unnamed ok", FoundCityPayload{EntityID: 2}, false},
		{"found city missing entity", FoundCityPayload{}, true},

		{"attack ok", AttackPayload{AttackerID: 1, TargetID: 2}, false},
		{"attack missing attacker", AttackPayload{TargetID: 2}, true},
		{"attack missing target", AttackPayload{AttackerID: 1}, true},
		{"attack self", AttackPayload{AttackerID: 3, TargetID: 3}, true},

		{"build ok", BuildPayload{CityID: 1, BuildingID: "granary"}, false},
		{"build missing building", BuildPayload{CityID: 1}, true},

		{"production ok", SetProductionPayload{CityID: 1, Item: "warrior"}, false},
		{"production missing item", SetProductionPayload{CityID: 1}, true},

		{"select ok", SelectPayload{EntityID: 7}, false},
		{"select missing entity", SelectPayload{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
