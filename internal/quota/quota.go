// Package quota implements the pre-mutation gate comparing a usage ledger
// reading against the caller's plan limits. The gate is a pure check and
// reserves no capacity: two concurrent callers can both pass before either
// increments, so the ledger may exceed the nominal limit by at most N-1
// writes for a burst of N.
package quota

import (
	"fmt"
	"strconv"
	"strings"

	"app/internal/model"
)

// DenialError is returned when a metered mutation would exceed the plan
// limit. The message names the dimension and the limit that was hit.
type DenialError struct {
	Dimension model.Dimension
	Limit     int64
	Used      int64

	// LimitText is the human form of the limit, e.g. "3" or "500MB".
	LimitText string
}

func (e *DenialError) Error() string {
	if e.Dimension == model.DimStorageBytes {
		return fmt.Sprintf("quota exceeded: this upload would exceed your %s storage limit", e.LimitText)
	}
	return fmt.Sprintf("quota exceeded: you have reached your monthly limit of %s %s", e.LimitText, e.Dimension.Label())
}

// ConfigError indicates an unparsable storage-limit string in the plan
// catalog. It is a data bug, not a transient condition, so the operation
// fails hard instead of degrading.
type ConfigError struct {
	Value string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("malformed storage limit %q in plan catalog", e.Value)
}

// Check returns nil when the ledger has headroom for one more unit of dim
// under limits, or a DenialError otherwise. It must be called before the
// mutation; after the mutation succeeds the caller increments the ledger.
func Check(limits *model.PlanLimits, usage *model.UsageLedger, dim model.Dimension) error {
	limit := limits.Limit(dim)
	if limit == model.Unlimited {
		return nil
	}
	used := usage.Value(dim)
	if used < limit {
		return nil
	}
	return &DenialError{Dimension: dim, Limit: limit, Used: used, LimitText: strconv.FormatInt(limit, 10)}
}

// CheckStorage verifies that storing incomingBytes more would stay under
// the plan's storage ceiling. An unparsable ceiling is a ConfigError.
func CheckStorage(limits *model.PlanLimits, usage *model.UsageLedger, incomingBytes int64) error {
	ceiling, err := ParseStorageLimit(limits.StorageLimit)
	if err != nil {
		return err
	}
	if ceiling == model.Unlimited {
		return nil
	}
	if usage.StorageBytesUsed+incomingBytes <= ceiling {
		return nil
	}
	return &DenialError{Dimension: model.DimStorageBytes, Limit: ceiling, Used: usage.StorageBytesUsed, LimitText: strings.TrimSpace(limits.StorageLimit)}
}

// ParseStorageLimit converts a catalog ceiling such as "500MB" or "2GB"
// into bytes. An empty string means no ceiling. Unknown units or an
// unparsable magnitude are a ConfigError.
func ParseStorageLimit(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return model.Unlimited, nil
	}

	upper := strings.ToUpper(trimmed)
	var multiplier int64
	var magnitude string
	switch {
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1024 * 1024 * 1024
		magnitude = strings.TrimSpace(upper[:len(upper)-2])
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		magnitude = strings.TrimSpace(upper[:len(upper)-2])
	default:
		return 0, &ConfigError{Value: s}
	}

	value, err := strconv.ParseFloat(magnitude, 64)
	if err != nil || value < 0 {
		return 0, &ConfigError{Value: s}
	}
	return int64(value * float64(multiplier)), nil
}
