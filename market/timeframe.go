package market

import (
	"fmt"
	"strconv"
)

// TimeframeMs converts a timeframe string like "15m", "4h" or "1d" into
// milliseconds. Any other suffix is an error.
func TimeframeMs(tf string) (int64, error) {
	if len(tf) < 2 {
		return 0, fmt.Errorf("unknown timeframe %q", tf)
	}
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unknown timeframe %q", tf)
	}
	switch tf[len(tf)-1] {
	case 'm':
		return int64(n) * 60000, nil
	case 'h':
		return int64(n) * 3600000, nil
	case 'd':
		return int64(n) * 86400000, nil
	}
	return 0, fmt.Errorf("unknown timeframe %q", tf)
}
