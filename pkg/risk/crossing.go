package risk

// CrossesAxis reports whether a rescaled value moved to the opposite side
// of an axis threshold between two time points. Only strictly opposite
// sides count: a value landing exactly on the threshold at either
// endpoint registers as no crossing.
func CrossesAxis(before, after, thresh float64) bool {
	return (before < thresh && after > thresh) || (before > thresh && after < thresh)
}

// Crossed reports whether a sample's trajectory crossed either axis
// threshold between its historical (hx, hy) and future (fx, fy)
// coordinates. Used as the filter predicate for movement-arrow
// annotation.
func Crossed(hx, hy, fx, fy, threshX, threshY float64) bool {
	return CrossesAxis(hx, fx, threshX) || CrossesAxis(hy, fy, threshY)
}
