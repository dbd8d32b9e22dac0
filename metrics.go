package octant

import (
	"github.com/akmonengine/octant/actor"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	indexLabel   = "index"
	errTypeLabel = "error_type"
	kindLabel    = "kind"
)

var (
	indexElements = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "octant_index_elements",
		Help: "The number of elements tracked by an octree index.",
	}, []string{indexLabel})

	indexSectors = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "octant_index_sectors",
		Help: "The number of live sectors of an octree index.",
	}, []string{indexLabel})

	indexSubdivisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octant_index_subdivisions_total",
		Help: "The number of leaf subdivisions.",
	}, []string{indexLabel})

	indexCollapses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octant_index_collapses_total",
		Help: "The number of sub-trees merged back into a leaf.",
	}, []string{indexLabel})

	indexErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octant_index_errors_total",
		Help: "The number of rejected index operations.",
	}, []string{indexLabel, errTypeLabel})

	sweepTests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octant_sweep_tests_total",
		Help: "The number of pair tests run by the collision sweep.",
	}, []string{indexLabel})

	sweepCollisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octant_sweep_collisions_total",
		Help: "The number of pair tests that found an overlap.",
	}, []string{indexLabel})

	clipEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octant_clip_events_total",
		Help: "The number of ground and boundary events recorded by the clipper.",
	}, []string{kindLabel})
)

func instrumentIndexSize(name string, elements, sectors int) {
	indexElements.With(prometheus.Labels{indexLabel: name}).Set(float64(elements))
	indexSectors.With(prometheus.Labels{indexLabel: name}).Set(float64(sectors))
}

func instrumentSubdivision(name string) {
	indexSubdivisions.With(prometheus.Labels{indexLabel: name}).Inc()
}

func instrumentCollapse(name string) {
	indexCollapses.With(prometheus.Labels{indexLabel: name}).Inc()
}

func instrumentIndexError(name string, err error) {
	indexErrors.
		With(prometheus.Labels{
			indexLabel:   name,
			errTypeLabel: errors.Type(err),
		}).
		Inc()
}

func instrumentSweep(name string, stats SweepStats) {
	sweepTests.With(prometheus.Labels{indexLabel: name}).Add(float64(stats.Tests))
	sweepCollisions.With(prometheus.Labels{indexLabel: name}).Add(float64(stats.Collisions))
}

func instrumentClip(kind actor.CollisionKind) {
	clipEvents.With(prometheus.Labels{kindLabel: kind.String()}).Inc()
}
