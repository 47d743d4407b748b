package collector

import "fmt"

// ProxyUnavailableError 源要求走代理但没有可用代理时快速失败，
// 避免直连大概率被墙的站点白白等超时。
type ProxyUnavailableError struct {
	Source string
}

func (e *ProxyUnavailableError) Error() string {
	return fmt.Sprintf("source %s requires proxy but none is configured", e.Source)
}

// FetchError 网络/HTTP 层面的失败
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError 响应体拿到了但不是预期的形状
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
