package progress

// Scaled returns a Reporter that maps each reported fraction f into
// lo + (hi-lo)*f before passing it to r. Stages that run in phases use it
// to give each phase its own slice of the stage. A nil r drops reports.
func Scaled(r Reporter, lo, hi float64) Reporter {
	return scaled{r: r, lo: lo, hi: hi}
}

type scaled struct {
	r      Reporter
	lo, hi float64
}

func (s scaled) Report(stage int, fraction float64, message string) {
	if s.r == nil {
		return
	}
	s.r.Report(stage, s.lo+(s.hi-s.lo)*fraction, message)
}
