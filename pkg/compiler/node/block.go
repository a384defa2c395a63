package node

import "slices"

// Add appends a node.
func (b *Block) Add(n Node) {
	b.Nodes = append(b.Nodes, n)
}

// Insert puts n at index, shifting later nodes back.
func (b *Block) Insert(index int, n Node) {
	b.Nodes = slices.Insert(b.Nodes, index, n)
}

// Replace swaps the node at index for n.
func (b *Block) Replace(index int, n Node) {
	b.Nodes[index] = n
}

// Erase removes count nodes starting at index.
func (b *Block) Erase(index, count int) {
	b.Nodes = slices.Delete(b.Nodes, index, index+count)
}

// EraseIndices removes the nodes at the given ascending indices in a single pass.
func (b *Block) EraseIndices(indices []int) {
	if len(indices) == 0 {
		return
	}
	out := b.Nodes[:0]
	next := 0
	for i, n := range b.Nodes {
		if next < len(indices) && indices[next] == i {
			next++
			continue
		}
		out = append(out, n)
	}
	clear(b.Nodes[len(out):])
	b.Nodes = out
}
