package domain

type TrackKind int

const (
	KindAudio TrackKind = iota
	KindVideo
)

func (k TrackKind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// VideoSource names what is currently sent as outgoing video.
type VideoSource int

const (
	VideoNone VideoSource = iota
	VideoCamera
	VideoScreen
)

func (s VideoSource) String() string {
	switch s {
	case VideoCamera:
		return "camera"
	case VideoScreen:
		return "screen"
	default:
		return "none"
	}
}

// AudioSource names what is currently sent as outgoing audio.
type AudioSource int

const (
	AudioMicrophone AudioSource = iota
	AudioScreen
)

func (s AudioSource) String() string {
	if s == AudioScreen {
		return "screen"
	}
	return "microphone"
}

type DeviceClass string

const (
	DeviceDesktop DeviceClass = "desktop"
	DeviceMobile  DeviceClass = "mobile"
)

// Constraints mirror getUserMedia video constraints. Zero values mean "any".
type Constraints struct {
	FacingMode string
	Width      int
	Height     int
}

// ConstraintsFor returns capture constraints for a device class: the front
// camera at a bounded resolution on mobile, unconstrained on desktop.
func ConstraintsFor(class DeviceClass) Constraints {
	if class == DeviceMobile {
		return Constraints{FacingMode: "user", Width: 1280, Height: 720}
	}
	return Constraints{}
}
