package tariff

import (
	"testing"
)

func TestDerive(t *testing.T) {
	rates := Rates{CostPerKWH: 0.25, CO2PerKWH: 0.4}

	subTests := []struct {
		name           string
		powerW         float64
		energyKWH      float64
		expectedCost   float64
		expectedCO2    float64
		expectedIsIdle bool
	}{
		{"TypicalClassroomLoad", 1800, 0.1, 0.03, 0.04, false},
		{"ZeroEnergy", 30, 0, 0, 0, true},
		{"CostRoundsDown", 500, 0.05, 0.01, 0.02, false},
		{"CostRoundsHalfUp", 500, 0.1, 0.03, 0.04, false},
		{"LargeConsumption", 3200, 12.345, 3.09, 4.938, false},
		{"IdleJustBelowThreshold", 49.9, 0.001, 0, 0, true},
		{"NotIdleOnThreshold", 50, 0.001, 0, 0, false},
	}
	for _, subTest := range subTests {
		t.Run(subTest.name, func(t *testing.T) {
			metrics := Derive(subTest.powerW, subTest.energyKWH, rates)
			if metrics.Cost != subTest.expectedCost {
				t.Errorf("Cost got %v, expected %v", metrics.Cost, subTest.expectedCost)
			}
			if metrics.CO2 != subTest.expectedCO2 {
				t.Errorf("CO2 got %v, expected %v", metrics.CO2, subTest.expectedCO2)
			}
			if metrics.IsIdle != subTest.expectedIsIdle {
				t.Errorf("IsIdle got %t, expected %t", metrics.IsIdle, subTest.expectedIsIdle)
			}
		})
	}
}

func TestDeriveDefaultIdleThreshold(t *testing.T) {
	metrics := Derive(49, 0, Rates{CostPerKWH: 0.25, CO2PerKWH: 0.4})
	if !metrics.IsIdle {
		t.Errorf("expected 49W to be idle under the default threshold")
	}
}

func TestDeriveCustomIdleThreshold(t *testing.T) {
	rates := Rates{CostPerKWH: 0.25, CO2PerKWH: 0.4, IdleThresholdW: 100}
	metrics := Derive(80, 0, rates)
	if !metrics.IsIdle {
		t.Errorf("expected 80W to be idle under a 100W threshold")
	}
}
