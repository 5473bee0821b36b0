// ABOUTME: Version and product identification
// ABOUTME: Reported by the CLI, the resample server and its mDNS records
package version

const (
	// Version is the release version
	Version = "0.3.0"
	// Product is the product name
	Product = "resample-go"
	// Manufacturer identifies who ships the software
	Manufacturer = "Resonate Protocol"
)
