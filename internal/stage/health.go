package stage

import "fmt"

// Health summarizes whether a stage can reach its oracle.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unready Health record with detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

func (h Health) String() string {
	status := "ready"
	if !h.Ready {
		status = "not ready"
	}
	if h.Detail == "" {
		return fmt.Sprintf("%s: %s", h.Name, status)
	}
	return fmt.Sprintf("%s: %s (%s)", h.Name, status, h.Detail)
}
