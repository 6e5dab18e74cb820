package conversation

import "strings"

// controlKeywords route an utterance to the command pipeline instead
// of free chat. German and English forms are both matched; the
// leading-space entries (" an", " aus", " ein") only match the words,
// not substrings like "answer".
var controlKeywords = []string{
	// Control verbs.
	"schalte", "schalt", "mach", "mache", "stelle", "stell",
	"dimme", "dimm", "erhöhe", "verringere", "öffne", "schließe",
	"starte", "stoppe", "spiele", "pausiere", "aktiviere",
	"turn on", "turn off", "switch on", "switch off",
	"dim ", "brighten", "open the", "close the", "activate",
	// Devices.
	"licht", "lampe", "heizung", "jalousie", "rollladen",
	"light", "lamp", "heating", "blinds", "shutter",
	" an", " aus", " ein",
	// Queries.
	"temperatur", "wie warm", "wie kalt", "wie viel grad",
	"temperature", "how warm", "how cold", "degrees",
	"luftfeuchtigkeit", "feuchtigkeit", "humidity",
	"sensor", "wert", "messung", "status",
	"zeig mir", "was ist", "wie ist", "welche",
	"show me", "what is", "which",
	"fenster", "tür", "offen", "geschlossen",
	"window", "door", "open?", "closed",
	"eingeschaltet", "ausgeschaltet", "batterie", "offline",
	"powered on", "battery",
}

// IsControlOrQuery reports whether the utterance looks like a device
// command or sensor question.
func IsControlOrQuery(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range controlKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
