package webhook

import "strings"

// Opt keyword sets, exact phrase match after trimming and lowercasing.
// English and Spanish, matching the markets the console ships to.
var optOutKeywords = map[string]bool{
	"stop":        true,
	"stopall":     true,
	"unsubscribe": true,
	"cancel":      true,
	"end":         true,
	"quit":        true,
	"cancelar":    true,
	"detener":     true,
	"parar":       true,
	"salir":       true,
	"baja":        true,
	"desuscribir": true,
	"no quiero":   true,
}

var optInKeywords = map[string]bool{
	"start":     true,
	"subscribe": true,
	"suscribir": true,
	"iniciar":   true,
	"inicio":    true,
	"alta":      true,
}

// DetectOptChange inspects a free-text body for opt-in/opt-out intent.
// It returns (optedOut, true) on a keyword hit, (false, false) otherwise.
func DetectOptChange(body string) (optedOut, matched bool) {
	normalized := strings.ToLower(strings.TrimSpace(body))
	if optOutKeywords[normalized] {
		return true, true
	}
	if optInKeywords[normalized] {
		return false, true
	}
	return false, false
}
