package live

import (
	"image"

	"github.com/kbinani/screenshot"
)

// Display grabs the primary display. Implements FrameGrabber.
type Display struct{}

// Grab implements FrameGrabber.
func (Display) Grab() (image.Image, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, newError(KindDevice, "No display is available to share.", nil)
	}
	img, err := screenshot.CaptureDisplay(0)
	if err != nil {
		return nil, newError(KindDevice, "Could not capture the display.", err)
	}
	return img, nil
}
