package sidecar

import (
	"strings"

	"github.com/0x5457/stitcher/internal/errs"
	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/parser"
	"github.com/0x5457/stitcher/internal/uri"
	"github.com/0x5457/stitcher/internal/util"
	"gopkg.in/yaml.v3"
)

// DocAdapter indexes document sidecars so that their keys and SURI values
// show up as usages of the symbols they describe.
type DocAdapter struct {
	moduleOf func(path string) string
}

// NewDocAdapter takes the workspace's path to module mapping, used to turn
// SURI values into FQNs.
func NewDocAdapter(moduleOf func(path string) string) *DocAdapter {
	return &DocAdapter{moduleOf: moduleOf}
}

func (a *DocAdapter) Language() string { return "stitcher-doc" }

func (a *DocAdapter) Extensions() []string { return []string{DocSuffix} }

func (a *DocAdapter) Parse(filePath, moduleFQN string, content []byte) (*models.FileIndex, error) {
	idx := &models.FileIndex{
		Path:        filePath,
		ModuleFQN:   moduleFQN,
		ContentHash: util.ContentHash(content),
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, errs.Parse(filePath, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return idx, nil
	}
	lines := lineStarts(content)
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		if key.Kind == yaml.ScalarNode && !strings.HasPrefix(key.Value, "__") {
			idx.References = append(idx.References, models.Reference{
				SourceFile: filePath,
				TargetFQN:  joinFQN(moduleFQN, key.Value),
				Kind:       models.RefSidecarName,
				Range:      scalarRange(key, lines),
			})
		}
		a.collectIDs(root.Content[i+1], filePath, lines, idx)
	}
	return idx, nil
}

func (a *DocAdapter) collectIDs(n *yaml.Node, filePath string, lines []int, idx *models.FileIndex) {
	if n.Kind == yaml.ScalarNode {
		if !uri.IsSURI(n.Value) {
			return
		}
		_, p, frag, err := uri.Split(n.Value)
		if err != nil {
			return
		}
		idx.References = append(idx.References, models.Reference{
			SourceFile: filePath,
			TargetFQN:  joinFQN(a.moduleOf(p), frag),
			TargetID:   n.Value,
			Kind:       models.RefSidecarID,
			Range:      scalarRange(n, lines),
		})
		return
	}
	for _, c := range n.Content {
		a.collectIDs(c, filePath, lines, idx)
	}
}

func lineStarts(content []byte) []int {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func scalarRange(n *yaml.Node, lines []int) *models.Range {
	if n.Line <= 0 || n.Line > len(lines) {
		return nil
	}
	width := len(n.Value)
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		width += 2
	}
	start := lines[n.Line-1] + n.Column - 1
	return &models.Range{
		StartLine: n.Line,
		StartCol:  n.Column - 1,
		EndLine:   n.Line,
		EndCol:    n.Column - 1 + width,
		StartByte: start,
		EndByte:   start + width,
	}
}

func joinFQN(module, fragment string) string {
	switch {
	case module == "":
		return fragment
	case fragment == "":
		return module
	}
	return module + "." + fragment
}

var _ parser.LanguageAdapter = (*DocAdapter)(nil)
