package metrics

import "strings"

const namespace = "leadops_"

// MetricName prefixes name with the service namespace unless it already
// carries it.
func MetricName(name string) string {
	if strings.HasPrefix(name, namespace) {
		return name
	}
	return namespace + name
}

// MetricNameWithSubsystem builds leadops_<subsystem>_<name>.
func MetricNameWithSubsystem(subsystem, name string) string {
	subsystem = strings.Trim(subsystem, "_")
	if subsystem == "" {
		return MetricName(name)
	}
	if name == "" {
		return namespace + subsystem
	}
	return namespace + subsystem + "_" + name
}
