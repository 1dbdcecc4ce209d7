package model

// Options tunes the model construction. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	// StrictTimeslots rejects requests with unparseable timeslot labels
	// instead of treating them as 00:00-00:00.
	StrictTimeslots bool
	// EarlyLabStart is the slot start (minutes) avoided by labs when the
	// disallow830Labs setting is on.
	EarlyLabStart int
	// BreakMinutes is the minimum gap an instructor needs between two classes.
	BreakMinutes int

	EarlyLabWeight      int
	GapPriorityScale    float64
	WorkloadWeight      int
	MorningWeight       int
	PreferredRoomWeight int

	TightFitRatio    float64
	LoadWarningRatio float64
}

func DefaultOptions() Options {
	return Options{
		EarlyLabStart:       8*60 + 30,
		BreakMinutes:        60,
		EarlyLabWeight:      1000,
		GapPriorityScale:    10,
		WorkloadWeight:      5,
		MorningWeight:       2,
		PreferredRoomWeight: 5,
		TightFitRatio:       0.8,
		LoadWarningRatio:    0.8,
	}
}
