package models

import "testing"

func TestCampaignUnwithdrawn(t *testing.T) {
	tests := []struct {
		name      string
		collected float64
		withdrawn float64
		expected  float64
	}{
		{"nothing collected", 0, 0, 0},
		{"partially withdrawn", 3, 1, 2},
		{"fully withdrawn", 3, 3, 0},
		{"inconsistent mirror", 1, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Campaign{AmountCollected: tt.collected, WithdrawnAmount: tt.withdrawn}
			if got := c.Unwithdrawn(); got != tt.expected {
				t.Errorf("Unwithdrawn() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCampaignSoftcapReached(t *testing.T) {
	c := Campaign{Softcap: 2, AmountCollected: 1.5}
	if c.SoftcapReached() {
		t.Error("softcap should not be reached at 1.5 of 2")
	}
	c.AmountCollected = 2
	if !c.SoftcapReached() {
		t.Error("softcap should be reached at 2 of 2")
	}
}
