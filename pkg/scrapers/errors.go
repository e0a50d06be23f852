package scrapers

import (
	"fmt"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// UnregisteredPlatformError is returned when a scrape is requested for a
// platform no worker was registered for.
type UnregisteredPlatformError struct {
	Platform platform.Platform
}

func (e *UnregisteredPlatformError) Error() string {
	return fmt.Sprintf("scrapers: no worker registered for platform %q", e.Platform)
}
