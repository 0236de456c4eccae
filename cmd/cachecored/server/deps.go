// Package server hosts cachecored's HTTP surface: PUT/GET handlers that
// drive the object cache core's WriteVC/ReadVC state machines against the
// in-memory internal/demo collaborators, plus health and metrics endpoints.
package server

import (
	"github.com/marmos91/cachecore/internal/demo"
	"github.com/marmos91/cachecore/pkg/metrics"
	"github.com/marmos91/cachecore/pkg/ode"
)

// Deps bundles everything a Handler needs to drive a VC: the shared ODE
// registry plus the demo package's in-memory Directory/Volume/Scheduler/
// Objects collaborators.
type Deps struct {
	Registry      *ode.Registry
	Dirs          *demo.Directories
	Volume        *demo.Volume
	Scheduler     *demo.Scheduler
	Objects       *demo.Objects
	Metrics       metrics.CoreMetrics
	FixedFragSize int64
}
