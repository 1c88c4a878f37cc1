package config

func float(v float64) *float64 { return &v }

// DefaultFleet returns the demo fleet used when the config file declares no aircraft
func DefaultFleet() []AircraftConfig {
	return []AircraftConfig{
		{
			FlightNumber:   "IND-456",
			Callsign:       "VISTARA",
			ICAO24:         "800C6E",
			OriginCountry:  "India",
			Category:       "A3",
			CruiseAltitude: float(10668), // ~35,000 ft
			StartAltitude:  216,
			Velocity:       245, // ~475 knots
			PositionSource: 0,
			Color:          "#007bff",
			// Delhi to Mumbai via Jaipur, Udaipur and Vadodara
			Route: [][]float64{
				{28.5665, 77.1032},
				{27.8000, 76.5000},
				{26.8241, 75.8122},
				{25.7000, 74.6500},
				{24.5854, 73.7125},
				{23.4500, 73.3000},
				{22.3094, 73.1812},
				{20.7500, 72.9000},
				{19.0896, 72.8656},
			},
		},
		{
			FlightNumber:   "SGP-789",
			Callsign:       "SPICEJET",
			ICAO24:         "75804F",
			OriginCountry:  "India",
			Category:       "B738",
			CruiseAltitude: float(11277), // ~37,000 ft
			StartAltitude:  915,
			Velocity:       255, // ~495 knots
			PositionSource: 0,
			Color:          "#007bff",
			// Bengaluru to Delhi via Hyderabad
			Route: [][]float64{
				{12.9716, 77.5946},
				{15.2000, 78.0000},
				{17.3850, 78.4867},
				{19.8000, 77.0000},
				{22.5000, 75.8000},
				{25.6000, 76.5000},
				{28.7041, 77.1025},
			},
		},
	}
}
