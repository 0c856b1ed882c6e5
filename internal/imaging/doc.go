// Package imaging holds the image representations and coordinate spaces used
// by condition detection.
//
// # Coordinate Spaces
//
// Detection works in three spaces:
//   - Full-size: pixel coordinates of the original capture
//   - Scaled: full-size coordinates multiplied by the active scale ratio
//   - Cropped-scaled: scaled coordinates restricted to a detection region
//
// Rect carries its Space explicitly and converts with ToScaled/ToFullSize.
// All conversions round through ScaleLength so that a region inside an image
// is still inside it after scaling. All coordinates have (0,0) at the
// top-left corner; rectangle minimums are inclusive and maximums exclusive.
//
// # Scale Ratios
//
// ScaleRatios derives one ratio per screen-metrics tag from the requested
// detection quality: the longest screen side is mapped onto quality pixels,
// and images are never upscaled.
//
// # Buffers
//
// Image keeps full-size color, scaled color and scaled grayscale buffers and
// reuses their storage between frames. Crops are views into those buffers
// and are invalidated whenever the image is processed again.
//
// # Thread Safety
//
// ScaleRatios and ConditionCache are safe for concurrent use. Image is not; it is
// owned by a single detector.
package imaging
