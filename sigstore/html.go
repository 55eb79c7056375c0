// CLAUDE:SUMMARY Converts raw HTML captures into the JSON element-tree form via golang.org/x/net/html.
package sigstore

import (
	"bytes"
	"context"
	"encoding/json"

	"golang.org/x/net/html"
)

// htmlNode is the JSON element-tree form of an HTML element. Text and
// comment nodes are dropped: the correlation store cares about structure,
// not content.
type htmlNode struct {
	Tag      string      `json:"tag"`
	ID       string      `json:"id,omitempty"`
	Class    string      `json:"class,omitempty"`
	Children []*htmlNode `json:"children,omitempty"`
}

// IngestDOMSnapshotHTML parses a raw HTML capture into the element-tree JSON
// form and stores it as a snapshot. The resulting tree walks identically to
// JSON-native snapshots for role counting and stability scoring.
func (s *Store) IngestDOMSnapshotHTML(ctx context.Context, snapshotID, traceID, correlationID string, capturedAtNS int64, rawHTML []byte) (*DOMSnapshot, error) {
	tree, err := HTMLToTree(rawHTML)
	if err != nil {
		return nil, malformed("html payload", err)
	}
	treeJSON, err := json.Marshal(tree)
	if err != nil {
		return nil, malformed("html tree", err)
	}
	return s.IngestDOMSnapshot(ctx, snapshotID, traceID, correlationID, capturedAtNS, treeJSON)
}

// HTMLToTree parses raw HTML and returns the root element node.
// html.Parse is forgiving; only a broken reader errors.
func HTMLToTree(rawHTML []byte) (*htmlNode, error) {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	return convertElement(firstElement(doc)), nil
}

func firstElement(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if e := firstElement(c); e != nil {
			return e
		}
	}
	return nil
}

func convertElement(n *html.Node) *htmlNode {
	if n == nil {
		return nil
	}
	node := &htmlNode{Tag: n.Data}
	for _, a := range n.Attr {
		switch a.Key {
		case "id":
			node.ID = a.Val
		case "class":
			node.Class = a.Val
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		node.Children = append(node.Children, convertElement(c))
	}
	return node
}
