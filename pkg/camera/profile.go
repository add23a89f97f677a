package camera

import "fmt"

// Size is a resolution pair.
type Size struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Profile is an immutable device configuration: the main stream resolution,
// an optional auxiliary low-res stream, and the driver buffer count.
type Profile struct {
	Main        Size
	Lores       *Size
	BufferCount uint32
}

// PreviewProfile builds the continuous-streaming configuration: lower main
// resolution plus a low-res stream kept around for future frame analysis.
func PreviewProfile(main, lores Size) Profile {
	l := lores
	return Profile{
		Main:        main,
		Lores:       &l,
		BufferCount: 4,
	}
}

// StillProfile builds the single-buffer full-resolution configuration.
func StillProfile(main Size) Profile {
	return Profile{
		Main:        main,
		BufferCount: 1,
	}
}

func (p Profile) String() string {
	if p.Lores != nil {
		return fmt.Sprintf("%s (lores %s)", p.Main, p.Lores)
	}
	return p.Main.String()
}
