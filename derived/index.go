package derived

// depIndex 派生值与其依赖节点的双向索引
type depIndex struct {
	forward map[string][]string
	reverse map[string]map[string]struct{}
}

func newDepIndex() *depIndex {
	return &depIndex{
		forward: map[string][]string{},
		reverse: map[string]map[string]struct{}{},
	}
}

func (idx *depIndex) set(key string, deps []Dependency) {
	idx.remove(key)
	nodes := make([]string, 0, len(deps))
	for _, d := range deps {
		node := d.key()
		keys, ok := idx.reverse[node]
		if !ok {
			keys = map[string]struct{}{}
			idx.reverse[node] = keys
		}
		if _, dup := keys[key]; dup {
			continue
		}
		keys[key] = struct{}{}
		nodes = append(nodes, node)
	}
	idx.forward[key] = nodes
}

func (idx *depIndex) remove(key string) {
	for _, node := range idx.forward[key] {
		keys := idx.reverse[node]
		delete(keys, key)
		if len(keys) == 0 {
			delete(idx.reverse, node)
		}
	}
	delete(idx.forward, key)
}

func (idx *depIndex) has(key string) bool {
	_, ok := idx.forward[key]
	return ok
}

func (idx *depIndex) dependents(d Dependency) []string {
	keys := idx.reverse[d.key()]
	out := make([]string, 0, len(keys))
	for key := range keys {
		out = append(out, key)
	}
	return out
}

func (idx *depIndex) len() int { return len(idx.forward) }
