package model

import "sort"

// EndpointSet 是按规范字符串去重后的代理集合。
// 构造完成后只读，可以安全地在多个 goroutine 间共享。
type EndpointSet struct {
	items map[string]Endpoint
}

// DedupeStats 记录一次去重的统计信息，便于调用方输出日志。
type DedupeStats struct {
	Input      int
	Malformed  int
	Duplicates int
}

// Dedupe 解析原始字符串并按规范形式去重。
// 解析失败的条目会被直接丢弃，不影响整批数据。
func Dedupe(raw []string) EndpointSet {
	set, _ := DedupeWithStats(raw)
	return set
}

// DedupeWithStats 与 Dedupe 相同，同时返回统计信息。
func DedupeWithStats(raw []string) (EndpointSet, DedupeStats) {
	stats := DedupeStats{Input: len(raw)}
	items := make(map[string]Endpoint, len(raw))
	for _, r := range raw {
		ep, err := ParseEndpoint(r)
		if err != nil {
			stats.Malformed++
			continue
		}
		key := ep.String()
		if _, exists := items[key]; exists {
			stats.Duplicates++
			continue
		}
		items[key] = ep
	}
	return EndpointSet{items: items}, stats
}

// Len 返回集合大小。
func (s EndpointSet) Len() int {
	return len(s.items)
}

// Contains 判断集合中是否存在该 Endpoint。
func (s EndpointSet) Contains(ep Endpoint) bool {
	_, ok := s.items[ep.String()]
	return ok
}

// Endpoints 返回集合内容的新切片，不保证顺序。
func (s EndpointSet) Endpoints() []Endpoint {
	out := make([]Endpoint, 0, len(s.items))
	for _, ep := range s.items {
		out = append(out, ep)
	}
	return out
}

// Strings 返回排序后的规范字符串列表。
func (s EndpointSet) Strings() []string {
	out := make([]string, 0, len(s.items))
	for key := range s.items {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
