// camera-info prints the device properties and verifies the two operating
// profiles can be applied. Useful when wiring up a new camera.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"hq-shutter-pi/pkg/camera"
)

var (
	devName = flag.String("device", "/dev/video0", "camera device path")
	grab    = flag.Bool("grab", false, "also grab one frame per profile")
)

func main() {
	flag.Parse()

	dev, err := camera.OpenV4L2(*devName)
	if err != nil {
		log.Fatalln(err)
	}
	defer dev.Close()

	props, err := dev.Properties()
	if err != nil {
		log.Fatalln(err)
	}
	fmt.Printf("camera %s:\n", *devName)
	for k, v := range props {
		fmt.Printf("  %s: %s\n", k, v)
	}

	profiles := []camera.Profile{
		camera.PreviewProfile(camera.Size{Width: 1640, Height: 1232}, camera.Size{Width: 640, Height: 480}),
		camera.StillProfile(camera.Size{Width: 4056, Height: 3040}),
	}
	for _, p := range profiles {
		if err := checkProfile(dev, p, *grab); err != nil {
			log.Printf("profile %s: %v", p, err)
			continue
		}
		fmt.Printf("profile %s ok\n", p)
	}
}

func checkProfile(dev *camera.V4L2Device, p camera.Profile, grab bool) error {
	if err := dev.Configure(p); err != nil {
		return err
	}
	if err := dev.Start(); err != nil {
		return err
	}
	defer dev.Stop()

	if grab {
		frame, err := dev.Frame(3 * time.Second)
		if err != nil {
			return err
		}
		fmt.Printf("  got frame, %d bytes\n", len(frame))
	}

	return nil
}
