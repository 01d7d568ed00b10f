package domain

// Band is a qualitative reading of a topic score.
type Band string

const (
	BandStrong  Band = "strong"
	BandGood    Band = "good"
	BandPartial Band = "partial"
	BandWeak    Band = "weak"
	BandMinimal Band = "minimal"
)

// BandFor maps a similarity score onto its band.
func BandFor(score float64) Band {
	switch {
	case score >= 0.5:
		return BandStrong
	case score >= 0.35:
		return BandGood
	case score >= 0.25:
		return BandPartial
	case score >= 0.15:
		return BandWeak
	default:
		return BandMinimal
	}
}

// Explanation is the human-readable sentence shown next to a band.
func (b Band) Explanation() string {
	switch b {
	case BandStrong:
		return "Strong alignment - document comprehensively addresses this requirement"
	case BandGood:
		return "Good alignment - document covers key aspects of this requirement"
	case BandPartial:
		return "Partial alignment - document touches on some aspects but could be more comprehensive"
	case BandWeak:
		return "Weak alignment - limited coverage of this requirement"
	default:
		return "Minimal alignment - requirement not substantially addressed in document"
	}
}
