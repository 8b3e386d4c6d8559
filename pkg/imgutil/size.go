package imgutil

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSize turns "200KB", "1.5MB", "512B" or a bare byte count into bytes.
// Units are binary (1KB = 1024 bytes).
func ParseSize(s string) (int64, error) {
	raw := s
	s = strings.TrimSpace(strings.ToUpper(s))
	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", raw)
	}
	bytes := int64(n * multiplier)
	if bytes <= 0 {
		return 0, fmt.Errorf("size %q must be positive", raw)
	}
	return bytes, nil
}

// HumanBytes formats b with a binary unit suffix.
func HumanBytes(b int64) string {
	switch {
	case b >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(b)/(1024*1024))
	case b >= 1024:
		return fmt.Sprintf("%.1f KB", float64(b)/1024)
	default:
		return fmt.Sprintf("%d B", b)
	}
}
