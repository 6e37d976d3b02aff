package intelligence

import "testing"

func TestParseInsight_PrefixedLines(t *testing.T) {
	raw := `SENTIMENT: Negative
CHURN_RISK: 0.75
SUMMARY: Customer is frustrated with repeated billing errors.
RECOMMENDATION: Offer a billing credit
RECOMMENDATION: Schedule a success call`

	in := parseInsight(raw)
	if in.Sentiment != "negative" {
		t.Errorf("sentiment = %q", in.Sentiment)
	}
	if in.ChurnRisk != 0.75 {
		t.Errorf("churn risk = %v", in.ChurnRisk)
	}
	if in.Summary != "Customer is frustrated with repeated billing errors." {
		t.Errorf("summary = %q", in.Summary)
	}
	if len(in.Recommendations) != 2 {
		t.Fatalf("recommendations = %v", in.Recommendations)
	}
}

func TestParseInsight_BulletRecommendations(t *testing.T) {
	raw := `SENTIMENT: positive
- Upsell the premium tier
- Invite to the beta program`

	in := parseInsight(raw)
	if len(in.Recommendations) != 2 {
		t.Fatalf("recommendations = %v", in.Recommendations)
	}
	if in.Recommendations[0] != "Upsell the premium tier" {
		t.Errorf("rec[0] = %q", in.Recommendations[0])
	}
}

func TestParseInsight_FreeTextFallsIntoSummary(t *testing.T) {
	raw := "The customer seems happy\nwith the new dashboard."
	in := parseInsight(raw)
	if in.Summary != "The customer seems happy with the new dashboard." {
		t.Errorf("summary = %q", in.Summary)
	}
	if in.Sentiment != "" {
		t.Errorf("sentiment should be empty, got %q", in.Sentiment)
	}
}

func TestNormalizeSentiment(t *testing.T) {
	cases := map[string]string{
		"Positive":   "positive",
		"NEGATIVE":   "negative",
		"neutral":    "neutral",
		"enthused":   "neutral",
		"":           "neutral",
		"very happy": "neutral",
	}
	for in, want := range cases {
		if got := normalizeSentiment(in); got != want {
			t.Errorf("normalizeSentiment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRisk(t *testing.T) {
	cases := map[string]float64{
		"0.35":    0.35,
		"35%":     0.35,
		"low":     0.2,
		"Medium":  0.5,
		"HIGH":    0.8,
		"1.5":     1,
		"-0.2":    0,
		"unknown": 0,
	}
	for in, want := range cases {
		if got := parseRisk(in); got != want {
			t.Errorf("parseRisk(%q) = %v, want %v", in, got, want)
		}
	}
}
