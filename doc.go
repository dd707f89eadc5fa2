// Package lightcache extracts the baked EEVEE light cache from Blender
// scene files and repackages it as GPU texture containers.
//
// # Overview
//
// Blender stores the global illumination it bakes for a scene as a light
// cache: a cubemap array with a mip chain for reflections and a flat 2D
// array for the irradiance grid. lightcache reads both through a
// [RecordStore], decides the pixel format and container shape of each,
// copies the raw texels into a container buffer with strict byte
// accounting, and writes one DDS file per texture:
//
//	<out>/<scene>/cube_tx.dds
//	<out>/<scene>/grid_tx.dds
//
// # Quick Start
//
//	store, err := lightcache.OpenStore("scene.blend")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := lightcache.New(store,
//	    lightcache.WithDiagnostics(os.Stdout),
//	).Run("out")
//
// # Errors
//
// Every failure aborts the run. Unsupported pixel formats, cube textures
// whose layer count is not a multiple of six and payloads that do not fill
// their container exactly are reported through [ErrUnsupportedFormat],
// [ErrInvalidCubeGeometry], [ErrIncompletePayload] and [ErrPayloadOverflow].
// A scene without a light cache is skipped, not failed.
//
// # Logging
//
// Nothing is logged by default. See [SetLogger] and [WithLogger].
package lightcache
