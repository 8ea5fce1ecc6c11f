package internaldefs

import "github.com/MrEthical07/taskAuth"

// Def names one engine metric.
type Def struct {
	ID   taskAuth.MetricID
	Name string
	Help string
}

// Bound is one histogram upper bound, as a Prometheus le label and as a
// suffix usable in instrument names.
type Bound struct {
	Label  string
	Suffix string
}

// AuditDropped is exported next to the engine counters.
var AuditDropped = Def{
	Name: "taskauth_audit_dropped_total",
	Help: "Audit events dropped under dispatcher backpressure.",
}

// Counters lists every counter in export order.
var Counters = []Def{
	{ID: taskAuth.MetricLoginSuccess, Name: "taskauth_login_success_total", Help: "Token pairs issued by login."},
	{ID: taskAuth.MetricLoginFailure, Name: "taskauth_login_failure_total", Help: "Rejected login credentials."},
	{ID: taskAuth.MetricLoginRateLimited, Name: "taskauth_login_rate_limited_total", Help: "Logins refused by the attempt budget."},
	{ID: taskAuth.MetricRefreshSuccess, Name: "taskauth_refresh_success_total", Help: "Token pairs issued by refresh."},
	{ID: taskAuth.MetricRefreshFailure, Name: "taskauth_refresh_failure_total", Help: "Failed refresh exchanges."},
	{ID: taskAuth.MetricRefreshRateLimited, Name: "taskauth_refresh_rate_limited_total", Help: "Refreshes refused by the attempt budget."},
	{ID: taskAuth.MetricAuthenticateSuccess, Name: "taskauth_authenticate_success_total", Help: "Access tokens resolved to a principal."},
	{ID: taskAuth.MetricAuthenticateFailure, Name: "taskauth_authenticate_failure_total", Help: "Access tokens that did not resolve."},
	{ID: taskAuth.MetricTokenExpired, Name: "taskauth_token_expired_total", Help: "Tokens rejected as expired."},
	{ID: taskAuth.MetricSignatureInvalid, Name: "taskauth_signature_invalid_total", Help: "Tokens rejected for a bad signature."},
	{ID: taskAuth.MetricUserAccessGranted, Name: "taskauth_user_access_granted_total", Help: "User access decisions that allowed."},
	{ID: taskAuth.MetricUserAccessDenied, Name: "taskauth_user_access_denied_total", Help: "User access decisions that denied."},
	{ID: taskAuth.MetricTaskAccessGranted, Name: "taskauth_task_access_granted_total", Help: "Task access decisions that allowed."},
	{ID: taskAuth.MetricTaskAccessDenied, Name: "taskauth_task_access_denied_total", Help: "Task access decisions that denied."},
	{ID: taskAuth.MetricOwnershipLookupError, Name: "taskauth_ownership_lookup_error_total", Help: "Ownership lookups that failed."},
	{ID: taskAuth.MetricRateLimitBackendError, Name: "taskauth_rate_limit_backend_error_total", Help: "Rate limiter backend failures."},
}

// Histograms lists every histogram in export order.
var Histograms = []Def{
	{ID: taskAuth.MetricAuthenticateLatency, Name: "taskauth_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// Bounds matches the engine's bucket layout, in seconds.
var Bounds = []Bound{
	{Label: "0.001", Suffix: "0_001"},
	{Label: "0.0025", Suffix: "0_0025"},
	{Label: "0.005", Suffix: "0_005"},
	{Label: "0.01", Suffix: "0_01"},
	{Label: "0.025", Suffix: "0_025"},
	{Label: "0.05", Suffix: "0_05"},
	{Label: "0.1", Suffix: "0_1"},
	{Label: "+Inf", Suffix: "inf"},
}

// Cumulative turns per-bucket counts into running totals over Bounds. Missing
// buckets count as zero and extra ones are ignored.
func Cumulative(raw []uint64) []uint64 {
	out := make([]uint64, len(Bounds))
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
