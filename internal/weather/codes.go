// internal/weather/codes.go
package weather

// Condition is the human-readable rendering of a WMO weather code.
type Condition struct {
	Description string
	Emoji       string
}

// fallbackCondition is used for any code absent from the table. Unknown codes
// never abort the pipeline.
var fallbackCondition = Condition{Description: "Clear", Emoji: "☀️"}

// wmoConditions maps WMO weather interpretation codes (0-99) to descriptions.
var wmoConditions = map[int]Condition{
	0:  {"Clear sky", "☀️"},
	1:  {"Mainly clear", "🌤️"},
	2:  {"Partly cloudy", "⛅"},
	3:  {"Overcast", "☁️"},
	45: {"Fog", "🌫️"},
	48: {"Depositing rime fog", "🌫️"},
	51: {"Light drizzle", "🌦️"},
	53: {"Moderate drizzle", "🌦️"},
	55: {"Dense drizzle", "🌧️"},
	56: {"Freezing drizzle: light", "🌧️"},
	57: {"Freezing drizzle: dense", "🌧️"},
	61: {"Slight rain", "🌧️"},
	63: {"Moderate rain", "🌧️"},
	65: {"Heavy rain", "🌧️"},
	66: {"Freezing rain: light", "🌧️"},
	67: {"Freezing rain: heavy", "🌧️"},
	71: {"Slight snow", "🌨️"},
	73: {"Moderate snow", "❄️"},
	75: {"Heavy snow", "❄️"},
	77: {"Snow grains", "🌨️"},
	80: {"Rain showers: slight", "🌧️"},
	81: {"Rain showers: moderate", "🌧️"},
	82: {"Rain showers: violent", "🌧️"},
	85: {"Snow showers: slight", "🌨️"},
	86: {"Snow showers: heavy", "❄️"},
	95: {"Thunderstorm", "⛈️"},
	96: {"Thunderstorm with slight hail", "⛈️"},
	99: {"Thunderstorm with heavy hail", "⛈️"},
}

// Describe returns the condition for a WMO code, falling back to a clear-sky
// entry for codes not in the table.
func Describe(code int) Condition {
	if cond, ok := wmoConditions[code]; ok {
		return cond
	}
	return fallbackCondition
}
