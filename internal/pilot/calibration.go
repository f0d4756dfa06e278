package pilot

import "fmt"

// Calibration maps coordinates on the captured frame to coordinates in
// the guest. Scale corrects resolution mismatch, offset corrects
// letterboxing.
type Calibration struct {
	ScaleX  float64 `yaml:"scale_x"`
	ScaleY  float64 `yaml:"scale_y"`
	OffsetX int     `yaml:"offset_x"`
	OffsetY int     `yaml:"offset_y"`
}

// Identity is the calibration for a 1:1 frame.
var Identity = Calibration{ScaleX: 1, ScaleY: 1}

// MapPoint translates a frame point into guest coordinates.
func (c Calibration) MapPoint(x, y int) (int, int) {
	return int(float64(x)*c.ScaleX) + c.OffsetX,
		int(float64(y)*c.ScaleY) + c.OffsetY
}

// ComputeCalibration derives scale factors from the frame and guest
// resolutions. Zero frame dimensions cannot be calibrated.
func ComputeCalibration(frameW, frameH, guestW, guestH int) (Calibration, error) {
	if frameW <= 0 || frameH <= 0 {
		return Calibration{}, fmt.Errorf("cannot calibrate from %dx%d frame", frameW, frameH)
	}
	return Calibration{
		ScaleX: float64(guestW) / float64(frameW),
		ScaleY: float64(guestH) / float64(frameH),
	}, nil
}
