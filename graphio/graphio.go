// Package graphio implements reading and writing of shader graph documents,
// a YAML description of a graph's operations and connections from which
// graphs are reconstructed through the gsg operation registry.
package graphio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/soypat/gsg"
	"github.com/soypat/gsg/glbuild"
	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a shader graph.
type Document struct {
	// Shader optionally names the graph.
	Shader string `yaml:"shader,omitempty"`
	Nodes  []Node `yaml:"nodes"`
	Edges  []Edge `yaml:"edges,omitempty"`
	// Root references the node whose output the document renders. Empty
	// selects the last node of the document.
	Root string `yaml:"root,omitempty"`
}

// Node describes one operation instance of a graph document. The payload
// fields mirror [gsg.OpSpec] and are read or ignored depending on the op.
type Node struct {
	ID     string    `yaml:"id"`
	Op     string    `yaml:"op"`
	Label  string    `yaml:"label,omitempty"`
	Kind   string    `yaml:"kind,omitempty"`
	Value  []float32 `yaml:"value,omitempty,flow"`
	Name   string    `yaml:"name,omitempty"`
	Mask   string    `yaml:"mask,omitempty"`
	Model  string    `yaml:"model,omitempty"`
	Source string    `yaml:"source,omitempty"`
}

// Edge connects an output slot to an input slot of a graph document. Both
// ends are "id.slot" references.
type Edge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Decode reads a YAML graph document from r. Unknown document fields are an
// error so misspelled payload fields do not pass silently.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("decoding graph document: %w", err)
	}
	return &doc, nil
}

// Encode writes doc to w as YAML.
func Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err := enc.Encode(doc)
	if err != nil {
		return err
	}
	return enc.Close()
}

// Build reconstructs the document's graph through the operation registry
// and returns it along with the document's root node. Build succeeds even
// when nodes of the built graph fail kind resolution; failures surface
// through [gsg.Node.Err] so editors can load and display broken documents.
func (doc *Document) Build() (g *gsg.Graph, root *gsg.Node, err error) {
	g = gsg.NewGraph()
	byID := make(map[string]*gsg.Node, len(doc.Nodes))
	for i := range doc.Nodes {
		nd := &doc.Nodes[i]
		if nd.ID == "" {
			return nil, nil, fmt.Errorf("node %d: missing id", i)
		} else if _, taken := byID[nd.ID]; taken {
			return nil, nil, fmt.Errorf("duplicate node id %q", nd.ID)
		}
		spec := gsg.OpSpec{
			Value:  nd.Value,
			Name:   nd.Name,
			Mask:   nd.Mask,
			Model:  nd.Model,
			Source: nd.Source,
		}
		if nd.Kind != "" {
			spec.Kind, err = glbuild.ParseKind(nd.Kind)
			if err != nil {
				return nil, nil, fmt.Errorf("node %q: %w", nd.ID, err)
			}
		}
		op, err := gsg.NewOp(nd.Op, spec)
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: %w", nd.ID, err)
		}
		n, err := g.Add(op)
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: %w", nd.ID, err)
		}
		n.Label = nd.Label
		byID[nd.ID] = n
	}
	for _, e := range doc.Edges {
		src, srcSlot, err := splitRef(byID, e.From)
		if err != nil {
			return nil, nil, fmt.Errorf("edge from %q: %w", e.From, err)
		}
		dst, dstSlot, err := splitRef(byID, e.To)
		if err != nil {
			return nil, nil, fmt.Errorf("edge to %q: %w", e.To, err)
		}
		err = g.Connect(src, srcSlot, dst, dstSlot)
		if err != nil {
			return nil, nil, err
		}
	}
	if doc.Root != "" {
		root = byID[doc.Root]
		if root == nil {
			return nil, nil, fmt.Errorf("root references unknown node %q", doc.Root)
		}
	} else if len(doc.Nodes) > 0 {
		root = byID[doc.Nodes[len(doc.Nodes)-1].ID]
	}
	return g, root, nil
}

func splitRef(byID map[string]*gsg.Node, ref string) (*gsg.Node, string, error) {
	id, slot, ok := strings.Cut(ref, ".")
	if !ok || id == "" || slot == "" {
		return nil, "", errors.New(`expected "id.slot" reference`)
	}
	n := byID[id]
	if n == nil {
		return nil, "", fmt.Errorf("unknown node id %q", id)
	}
	return n, slot, nil
}

// NewDocument serializes graph g into a document, assigning each node a
// fresh UUID. Nodes whose operations do not implement [gsg.SpecOp] cannot
// be represented and produce an error. A non-nil root must be a node of g
// and is recorded as the document's root reference.
func NewDocument(name string, g *gsg.Graph, root *gsg.Node) (*Document, error) {
	doc := &Document{Shader: name}
	nodes := g.Nodes()
	ids := make(map[*gsg.Node]string, len(nodes))
	for _, n := range nodes {
		op := n.Op()
		specop, ok := op.(gsg.SpecOp)
		if !ok {
			return nil, fmt.Errorf("node %s: op %q cannot be serialized", n.Name(), op.OpName())
		}
		id := uuid.NewString()
		ids[n] = id
		spec := specop.OpSpec()
		nd := Node{
			ID:     id,
			Op:     op.OpName(),
			Label:  n.Label,
			Value:  spec.Value,
			Name:   spec.Name,
			Mask:   spec.Mask,
			Model:  spec.Model,
			Source: spec.Source,
		}
		if spec.Kind != glbuild.KindError {
			nd.Kind = spec.Kind.String()
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for _, n := range nodes {
		for _, s := range n.Slots() {
			if !s.IsInput() {
				continue
			}
			src, srcSlot, err := n.Input(s.Name)
			if err != nil {
				return nil, err
			} else if src == nil {
				continue
			}
			doc.Edges = append(doc.Edges, Edge{
				From: ids[src] + "." + srcSlot,
				To:   ids[n] + "." + s.Name,
			})
		}
	}
	if root != nil {
		id, ok := ids[root]
		if !ok {
			return nil, errors.New("root node not part of graph")
		}
		doc.Root = id
	}
	return doc, nil
}

// Load reads a YAML graph document from r and reconstructs its graph.
func Load(r io.Reader) (*gsg.Graph, *gsg.Node, error) {
	doc, err := Decode(r)
	if err != nil {
		return nil, nil, err
	}
	return doc.Build()
}

// Save serializes graph g as a YAML graph document written to w.
func Save(w io.Writer, name string, g *gsg.Graph, root *gsg.Node) error {
	doc, err := NewDocument(name, g, root)
	if err != nil {
		return err
	}
	return Encode(w, doc)
}
