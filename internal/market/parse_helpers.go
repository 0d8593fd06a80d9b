package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseChart reads a Yahoo chart response into samples, skipping rows with a
// missing close.
func parseChart(payload map[string]any) ([]Sample, error) {
	chart, ok := toMap(payload["chart"])
	if !ok {
		return nil, errors.New("chart payload missing chart object")
	}
	if errObj, ok := toMap(chart["error"]); ok {
		return nil, fmt.Errorf("chart error: %s", stringFromMap(errObj, "description", "code"))
	}
	results, ok := toSlice(chart["result"])
	if !ok || len(results) == 0 {
		return nil, errors.New("chart payload missing result")
	}
	result, ok := toMap(results[0])
	if !ok {
		return nil, errors.New("chart result is not an object")
	}
	timestamps, _ := toSlice(result["timestamp"])
	indicators, _ := toMap(result["indicators"])
	quotes, _ := toSlice(indicators["quote"])
	quote, _ := indexedMap(quotes, 0)
	closes, _ := toSlice(quote["close"])
	volumes, _ := toSlice(quote["volume"])
	if len(timestamps) == 0 || len(closes) == 0 {
		return nil, errors.New("chart payload has no rows")
	}
	samples := make([]Sample, 0, len(timestamps))
	for i, rawTS := range timestamps {
		if i >= len(closes) {
			break
		}
		ts, ok := floatFromAny(rawTS)
		if !ok {
			continue
		}
		closePx, ok := floatFromAny(closes[i])
		if !ok || closePx <= 0 {
			continue
		}
		var volume float64
		if i < len(volumes) {
			volume, _ = floatFromAny(volumes[i])
		}
		samples = append(samples, Sample{
			Time:   time.Unix(int64(ts), 0).UTC(),
			Close:  closePx,
			Volume: volume,
		})
	}
	if len(samples) == 0 {
		return nil, errors.New("chart payload has no usable rows")
	}
	return samples, nil
}

// parseKline reads a Binance kline stream event.
func parseKline(payload map[string]any) (Sample, bool) {
	if data, ok := toMap(payload["data"]); ok {
		payload = data
	}
	if stringFromAny(payload["e"]) != "kline" {
		return Sample{}, false
	}
	k, ok := toMap(payload["k"])
	if !ok {
		return Sample{}, false
	}
	start, ok := floatFromAny(k["t"])
	if !ok {
		return Sample{}, false
	}
	closePx := floatFromMap(k, "c")
	if closePx <= 0 {
		return Sample{}, false
	}
	return Sample{
		Time:   time.UnixMilli(int64(start)).UTC(),
		Close:  closePx,
		Volume: floatFromMap(k, "v"),
	}, true
}

func indexedMap(items []any, idx int) (map[string]any, bool) {
	if idx < 0 || idx >= len(items) {
		return nil, false
	}
	return toMap(items[idx])
}

func toMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func toSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func stringFromMap(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s := stringFromAny(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func floatFromMap(m map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if f, ok := floatFromAny(v); ok {
				return f
			}
		}
	}
	return 0
}

func floatFromAny(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
