package alerting

import "time"

// Rules holds the thresholds of the rule engine.
type Rules struct {
	PriceChangeHigh   float64
	PriceChangeMedium float64
	PriceChangeLow    float64

	// LevelProximity is the relative distance to a round level that counts as "at" it.
	LevelProximity float64
	LevelMinChange float64
	PriceLevels    map[string][]float64

	VolumeHigh       float64
	VolumeMedium     float64
	VolumeMinSamples int
	VolumeLookback   time.Duration

	GreedThreshold float64
	FearThreshold  float64
}

func DefaultRules() Rules {
	return Rules{
		PriceChangeHigh:   8,
		PriceChangeMedium: 5,
		PriceChangeLow:    3,
		LevelProximity:    0.02,
		LevelMinChange:    2,
		PriceLevels: map[string][]float64{
			"BTC": {50000, 60000, 70000, 75000, 80000, 90000, 100000, 110000, 120000, 150000},
			"ETH": {2000, 2500, 3000, 3500, 4000, 4500, 5000},
		},
		VolumeHigh:       4,
		VolumeMedium:     2.5,
		VolumeMinSamples: 5,
		VolumeLookback:   7 * 24 * time.Hour,
		GreedThreshold:   80,
		FearThreshold:    20,
	}
}
