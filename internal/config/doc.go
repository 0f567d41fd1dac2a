// Package config loads the blueprint parser configuration from a YAML file.
//
// Config fields:
//   - Server.Addr            listen address (default ":8080")
//   - Server.MaxUploadBytes  request body cap (default 32 MiB)
//   - Pipeline.Threshold     default brightness bias (default -0.1)
//   - Pipeline.ErodeIterations / DilateIterations (default 2 / 2)
//   - Pipeline.KernelSize    odd side of the square kernel (default 3)
//   - Pipeline.Tick          consumer drain cadence (default 16ms)
//   - Pipeline.MaxDimension  downscale uploads larger than this; 0 disables
//   - Output.Format          "jpeg" or "png" (default "jpeg")
//   - Output.JPEGQuality     1..100 (default 90)
//   - Storage.Dir            upload directory; empty disables storage
//   - Log.Level / Log.Format zerolog level, "json" or "console"
//
// Load(path) applies defaults before unmarshalling, then environment
// overrides (BLUEPRINT_ADDR, BLUEPRINT_LOG_LEVEL, BLUEPRINT_STORAGE_DIR),
// then validates. Watch reloads the file when it changes.
package config
