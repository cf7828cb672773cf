package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 超时关键字，与 osal.Infinite / osal.Immediate 取值一致
const (
	keywordInfinite  = "infinite"
	keywordImmediate = "immediate"

	infinite Duration = -1
)

// Duration 配置中的时长
//
// JSON 可写作 "250ms"、"1m30s"，或纳秒整数；超时字段另外接受
// "infinite"（-1，无限等待）与 "immediate"（0，非阻塞轮询）。
type Duration time.Duration

// UnmarshalJSON 解析字符串或纳秒整数
func (d *Duration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := parseDuration(s)
		if err != nil {
			return err
		}
		*d = v
		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a string or integer nanoseconds, got %s", data)
	}
	*d = Duration(n)
	return nil
}

func parseDuration(s string) (Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case keywordInfinite:
		return infinite, nil
	case keywordImmediate:
		return 0, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return Duration(v), nil
}

// MarshalJSON 输出可读字符串，-1 输出为 "infinite"
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Duration 返回 time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// IsInfinite 是否为无限等待
func (d Duration) IsInfinite() bool {
	return d < 0
}

func (d Duration) String() string {
	if d.IsInfinite() {
		return keywordInfinite
	}
	return time.Duration(d).String()
}
