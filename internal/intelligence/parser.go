package intelligence

import (
	"strconv"
	"strings"
)

// parseInsight interpreta la respuesta del modelo línea por línea con
// prefijos conocidos. Las líneas sin prefijo se acumulan en el summary
// si todavía no apareció uno explícito. El parser es tolerante: un
// campo ausente queda en su zero value, nunca falla.
func parseInsight(raw string) CustomerInsight {
	var in CustomerInsight
	var extra []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "SENTIMENT:"):
			in.Sentiment = normalizeSentiment(after(line, "SENTIMENT:"))
		case strings.HasPrefix(line, "CHURN_RISK:"):
			in.ChurnRisk = parseRisk(after(line, "CHURN_RISK:"))
		case strings.HasPrefix(line, "SUMMARY:"):
			in.Summary = after(line, "SUMMARY:")
		case strings.HasPrefix(line, "RECOMMENDATION:"):
			in.Recommendations = append(in.Recommendations, after(line, "RECOMMENDATION:"))
		case strings.HasPrefix(line, "- "):
			// Los modelos suelen listar recomendaciones con viñetas.
			in.Recommendations = append(in.Recommendations, strings.TrimPrefix(line, "- "))
		default:
			extra = append(extra, line)
		}
	}

	if in.Summary == "" && len(extra) > 0 {
		in.Summary = strings.Join(extra, " ")
	}
	return in
}

func after(line, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, prefix))
}

func normalizeSentiment(s string) string {
	switch strings.ToLower(s) {
	case "positive", "negative", "neutral":
		return strings.ToLower(s)
	}
	return "neutral"
}

// parseRisk acepta "0.35", "35%" o etiquetas (low/medium/high) y lo
// normaliza a [0,1].
func parseRisk(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "low":
		return 0.2
	case "medium":
		return 0.5
	case "high":
		return 0.8
	}
	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if pct {
		v /= 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
