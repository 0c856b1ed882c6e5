// Package detector decides whether a condition image is visible on a screen
// capture, where, and with what confidence.
//
// # Lifecycle
//
//	d := detector.New(detector.WithOCR(factory))
//	if err := d.Initialize(sink); err != nil { ... }
//	defer d.Release()
//
//	d.SetScreenMetrics("main", frame, 480)
//	d.SetScreenImage(frame)
//	res := d.DetectCondition(cond, nil, 80)
//
// # Visual Detection
//
// The screen and condition are scaled by the active ratio, the screen is
// cropped to the region and a correlation map is computed once. Candidates
// are then taken from the map best first. A candidate is accepted when its
// score is above (100-threshold)/100 and the mean color of its full-size
// area is within threshold of the condition's mean color. The first
// candidate at or below the score bar ends the search, since later ones can
// only score lower.
//
// # Text Detection
//
// Text detection walks the same candidates but accepts on recognized text
// containing the target. It stops after a fixed number of recognition
// attempts (DefaultMaxTextAttempts).
//
// # Results
//
// Every detection call produces exactly one Result, returned to the caller
// and delivered to the sink bound by Initialize. Rejections never surface as
// errors: Result.Err carries the cause and Result.Reason its text.
package detector
