// Example program demonstrating how to use the preview package to:
// 1. Load an exported intensity volume through its manifest
// 2. Print the on-axis intensity profile
// 3. Write the xz section, the first, middle and last xy planes and the axial profile
//    plot as PNG files
// 4. Read the 16-bit xz section back with its fixed scaling
//
// Usage:
//
//	go run main.go [manifest.yaml]
//
// The manifest defaults to fresnel_volume.yaml in the current directory. If it cannot be
// read, the program falls back to a synthetic volume.
package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/bob-anderson-ok/FresnelVolume/fresnel"
	"github.com/bob-anderson-ok/FresnelVolume/preview"
)

func main() {
	fmt.Println("Diffraction Volume Preview Example")
	fmt.Println("==================================")

	manifestFile := "fresnel_volume.yaml"
	if len(os.Args) > 1 {
		manifestFile = os.Args[1]
	}

	iv, title, err := loadVolume(manifestFile)
	if err != nil {
		fmt.Printf("\nNote: Could not load %s: %v\n", manifestFile, err)
		fmt.Println("Using a synthetic circular-aperture volume instead.")
		iv, err = syntheticVolume()
		if err != nil {
			log.Fatalf("Failed to build synthetic volume: %v", err)
		}
		title = "Synthetic circular aperture"
		manifestFile = "synthetic_volume.yaml"
	}

	shape := iv.Shape()
	fmt.Printf("\nVolume shape (z, y, x): (%d, %d, %d)\n", shape[0], shape[1], shape[2])
	fmt.Printf("z range: %.4f m to %.4f m\n", iv.Z[0], iv.Z[len(iv.Z)-1])

	// The axis falls between the four central samples; compare with the nearest one.
	onAxis, err := preview.OnAxisProfile(iv)
	if err != nil {
		log.Fatalf("Failed to extract on-axis profile: %v", err)
	}
	center := iv.N / 2
	nearest, err := preview.AxialProfile(iv, center, center)
	if err != nil {
		log.Fatalf("Failed to extract axial profile: %v", err)
	}
	fmt.Println("\nOn-axis intensity (interpolated / nearest sample):")
	for k, pt := range onAxis {
		fmt.Printf("  z = %8.4f m  I = %.4f / %.4f\n", pt.Z, pt.Intensity, nearest[k].Intensity)
	}

	base := strings.TrimSuffix(manifestFile, filepath.Ext(manifestFile))
	files, err := preview.WriteAll(iv, base, title)
	if err != nil {
		log.Fatalf("Failed to write previews: %v", err)
	}
	fmt.Printf("\nSaved xz section to %s\n", files.SectionXZ)
	fmt.Printf("Saved 16-bit xz section to %s\n", files.SectionXZ16)
	fmt.Printf("Saved xy planes to %s, %s and %s\n", files.FirstPlaneXY, files.MidPlaneXY, files.LastPlaneXY)
	fmt.Printf("Saved axial profile plot to %s\n", files.AxialPlot)

	// Read the 16-bit section back and check it against the volume
	section, err := preview.SectionXZ(iv)
	if err != nil {
		log.Fatalf("Failed to extract xz section: %v", err)
	}
	readBack, err := preview.LoadGray16PNG(files.SectionXZ16, preview.Gray16Scale)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", files.SectionXZ16, err)
	}
	worst := 0.0
	for y := range section {
		for x := range section[y] {
			worst = math.Max(worst, math.Abs(section[y][x]-readBack[y][x]))
		}
	}
	fmt.Printf("16-bit section read back: %dx%d, largest deviation %.2e (one step is %.2e)\n",
		len(readBack[0]), len(readBack), worst, 1/preview.Gray16Scale)

	fmt.Println("\nDone!")
}

func loadVolume(manifestFile string) (*fresnel.IntensityVolume, string, error) {
	m, err := fresnel.ReadManifest(manifestFile)
	if err != nil {
		return nil, "", err
	}
	iv, err := fresnel.ReadRaw(filepath.Dir(manifestFile), m)
	if err != nil {
		return nil, "", err
	}
	return iv, m.Title, nil
}

// syntheticVolume propagates a 1 mm diameter circular aperture over a short z range.
func syntheticVolume() (*fresnel.IntensityVolume, error) {
	const (
		n          = 128
		radius     = 5e-4
		wavelength = 6.33e-7
	)
	g, err := fresnel.NewGrid(n, 8*radius)
	if err != nil {
		return nil, err
	}
	ap, err := fresnel.GenerateAperture(fresnel.Circle{Radius: radius}, g)
	if err != nil {
		return nil, err
	}
	vol, err := fresnel.Scan(context.Background(), ap.Field(), fresnel.ZValues(0.05, 0.4, 16), wavelength, g.Dx, fresnel.ScanOptions{Workers: 4})
	if err != nil {
		return nil, err
	}
	return fresnel.Normalize(vol)
}
