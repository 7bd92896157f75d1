package bundle

import (
	"sort"
	"strings"
)

type treeNode struct {
	name     string
	children map[string]*treeNode
	isDir    bool
}

// RenderTree draws the files as a directory tree under a root label. Directories
// come first, then files, each group sorted case-insensitively.
func RenderTree(rootLabel string, files []FileRecord) string {
	root := &treeNode{name: rootLabel, isDir: true, children: map[string]*treeNode{}}
	for _, f := range files {
		node := root
		parts := strings.Split(f.RelPath, "/")
		for i, part := range parts {
			child, ok := node.children[part]
			if !ok {
				child = &treeNode{name: part, children: map[string]*treeNode{}}
				node.children[part] = child
			}
			if i < len(parts)-1 {
				child.isDir = true
			}
			node = child
		}
	}

	var b strings.Builder
	b.WriteString(rootLabel + "/\n")
	renderChildren(&b, root, "")
	return b.String()
}

func renderChildren(b *strings.Builder, node *treeNode, prefix string) {
	entries := make([]*treeNode, 0, len(node.children))
	for _, child := range node.children {
		entries = append(entries, child)
	}

	// Sort entries: directories first, then files, alphabetically
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].isDir != entries[j].isDir {
			return entries[i].isDir
		}
		return strings.ToLower(entries[i].name) < strings.ToLower(entries[j].name)
	})

	for i, entry := range entries {
		connector := "├── "
		extension := "│   "
		if i == len(entries)-1 {
			connector = "└── "
			extension = "    "
		}

		if entry.isDir {
			b.WriteString(prefix + connector + entry.name + "/\n")
			renderChildren(b, entry, prefix+extension)
			continue
		}
		b.WriteString(prefix + connector + entry.name + "\n")
	}
}
