package validation

import "regexp"

// Action name rules:
// - Lowercase only.
// - Start and end with [a-z0-9] (or "*" for wildcards, validated apart).
// - Middle chars may include [a-z0-9/_.-].
// - Length 1..128.
// - Slash separates hierarchy segments ("query/read", "email/send").
//
// Examples valid: query, query/read, data/export.csv, a
// Examples invalid: /lead, trail/, BAD, bad space, "", 129+ chars.
var actionNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9/_\.-]{0,126}[a-z0-9])?$`)

// Tenant and agent IDs: slug o UUID, minúsculas, 1..64.
var idRe = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{0,63}$`)

// ValidActionName valida una acción concreta (sin wildcards).
func ValidActionName(name string) bool {
	return actionNameRe.MatchString(name)
}

// ValidActionPattern acepta además el wildcard total "*" y el prefijo
// "segmento/*" usados en los scopes de autoridad.
func ValidActionPattern(p string) bool {
	if p == "*" {
		return true
	}
	if len(p) > 2 && p[len(p)-2:] == "/*" {
		return ValidActionName(p[:len(p)-2])
	}
	return ValidActionName(p)
}

// ValidID valida identificadores de tenant y agente.
func ValidID(id string) bool {
	return idRe.MatchString(id)
}

// ValidActionPatterns valida una lista completa de patrones.
func ValidActionPatterns(patterns []string) bool {
	for _, p := range patterns {
		if !ValidActionPattern(p) {
			return false
		}
	}
	return true
}
