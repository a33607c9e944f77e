// internal/fanout/compose.go
package fanout

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"weather-notify/internal/weather"
)

// Provider hard limits for notification content.
const (
	maxTitleLen = 32
	maxBodyLen  = 128
)

const callToAction = "Good morning! Check your weather."

// Compose builds the notification content for one batch from a weather
// snapshot and the place label. Title and body are capped at the provider
// limits regardless of label length; the label is shortened before the
// temperature part ever is.
func Compose(snapshot weather.Snapshot, label, appBaseURL string) Message {
	temp := roundHalfAwayFromZero(snapshot.TemperatureC)

	prefix := fmt.Sprintf("%s %d°C", snapshot.Emoji, temp)
	title := composeWithLabel(prefix, label, maxTitleLen)

	lead := snapshot.Description
	if label != "" {
		lead = fmt.Sprintf("%s in %s", snapshot.Description, label)
	}
	body := truncateRunes(fmt.Sprintf("%s. %s", lead, callToAction), maxBodyLen)

	return Message{
		Title:     title,
		Body:      body,
		TargetURL: targetURL(appBaseURL, label),
	}
}

// composeWithLabel appends " in <label>" to prefix while keeping the result
// within max runes, shortening the label as needed and dropping it entirely
// when no room remains.
func composeWithLabel(prefix, label string, max int) string {
	if label == "" {
		return truncateRunes(prefix, max)
	}

	full := prefix + " in " + label
	if runeLen(full) <= max {
		return full
	}

	avail := max - runeLen(prefix) - runeLen(" in ")
	if avail < 1 {
		return truncateRunes(prefix, max)
	}
	return prefix + " in " + truncateRunes(label, avail)
}

// targetURL appends the notification context parameters to the app base URL
// so the landing page can detect notification-driven opens.
func targetURL(base, label string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("context", "notification")
	if label != "" {
		q.Set("label", label)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func roundHalfAwayFromZero(v float64) int {
	return int(math.Round(v))
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRight(string(runes[:max]), " ")
}
