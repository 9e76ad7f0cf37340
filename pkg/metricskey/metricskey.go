package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsToolCallsSucceeded is base for counter metric for total remote tool calls succeeded
	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total remote tool calls succeeded",
		RequiredTags: []string{"server", "tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total remote tool calls failed",
		RequiredTags: []string{"server", "tool"},
	}

	StatsCallRetries = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_call_retries",
		Help:         "stats_call_retries provides total request attempts retried",
		RequiredTags: []string{"server"},
	}

	StatsAuthRefreshes = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_auth_refreshes",
		Help:         "stats_auth_refreshes provides total header refreshes after an unauthorized response",
		RequiredTags: []string{"server"},
	}

	StatsStepUpChallenges = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_step_up_challenges",
		Help:         "stats_step_up_challenges provides total step-up authentication rounds",
		RequiredTags: []string{"server"},
	}

	StatsDiscoveryFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_discovery_failed",
		Help:         "stats_discovery_failed provides total tool discovery calls failed",
		RequiredTags: []string{"server"},
	}
)

// Perf
var (
	PerfHandshake = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_handshake",
		Help:         "perf_handshake provides duration of server handshake",
		RequiredTags: []string{"server"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of remote tool call",
		RequiredTags: []string{"server", "tool"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfHandshake,
	&PerfToolCall,
	&StatsAuthRefreshes,
	&StatsCallRetries,
	&StatsDiscoveryFailed,
	&StatsStepUpChallenges,
	&StatsToolCallsFailed,
	&StatsToolCallsSucceeded,
}
