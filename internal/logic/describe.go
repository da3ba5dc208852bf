package logic

// Describe returns the human-readable message for a category.
func Describe(c Category) string {
	switch c {
	case ForceSignal:
		return "High pollution! Force signal active."
	case HighPollution:
		return "High pollution!"
	case LowPollution:
		return "Low pollution!"
	case FreshAir:
		return "Fresh air."
	default:
		return "Unknown error."
	}
}

// Code returns the category's numeric code.
func (c Category) Code() int {
	return int(c)
}

// String returns the category's name, e.g. "HIGH_POLLUTION".
func (c Category) String() string {
	switch c {
	case ForceSignal:
		return "FORCE_SIGNAL"
	case HighPollution:
		return "HIGH_POLLUTION"
	case LowPollution:
		return "LOW_POLLUTION"
	case FreshAir:
		return "FRESH_AIR"
	case Invalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}
