//go:build !gcloud

package config

// Validate accepts an empty notifier URL: without one the engine falls back
// to the logging alert surface.
func (c *AlertSurfaceConfig) Validate() error {
	return nil
}
