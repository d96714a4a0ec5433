package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danishi/adk-blog-writer-agent/pkg/version"
)

const namespace = "blogwriter"

var (
	// CitationsInserted counts citation markers added to grounded answers.
	CitationsInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "citations_inserted_total",
		Help:      "Citation markers inserted into grounded model responses.",
	})

	// PreviewsInlined counts image previews appended to model responses.
	PreviewsInlined = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "previews_inlined_total",
		Help:      "Inline image previews appended to model responses.",
	})

	// MissingArtifacts counts responses that referenced an artifact that was not stored.
	MissingArtifacts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "missing_artifacts_total",
		Help:      "Artifact placeholders rewritten because the artifact does not exist.",
	})

	// InlineFailures counts inliner runs that fell back to the original response.
	InlineFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inline_failures_total",
		Help:      "Artifact inlining attempts that failed and returned the original response.",
	})

	// ImageGenerations counts image tool invocations by provider and status.
	ImageGenerations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_generations_total",
		Help:      "Image generation tool invocations by provider and result status.",
	}, []string{"provider", "status"})

	// ToolCalls counts tool invocations made by any agent, by tool and the
	// status the tool reported.
	ToolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_calls_total",
		Help:      "Agent tool invocations by tool name and result status.",
	}, []string{"tool", "status"})
)

// NewBuildInfoCollector returns a collector that exports metrics about current version
// information.
func NewBuildInfoCollector() prometheus.Collector {
	info := version.Get()
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "blogwriter build metadata exposed as labels with a constant value of 1.",
			ConstLabels: prometheus.Labels{
				"version":    info.Version,
				"git_commit": info.GitCommit,
				"build_date": info.BuildDate,
				"go_version": info.GoVersion,
				"platform":   info.Platform,
			},
		},
		func() float64 { return 1 },
	)
}

// Register registers the pipeline collectors and the build info gauge.
// Collectors that are already registered are ignored.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		CitationsInserted,
		PreviewsInlined,
		MissingArtifacts,
		InlineFailures,
		ImageGenerations,
		ToolCalls,
		NewBuildInfoCollector(),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
