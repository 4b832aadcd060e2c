// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package validation

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// node is a parsed XML element, kept in document order.
type node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Text     string
	Children []*node
}

func parse(document []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(document))

	var root *node
	var stack []*node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{Name: t.Name, Attrs: t.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return root, nil
}

// all returns every descendant reached by the slash separated path.
func (n *node) all(path string) []*node {
	if n == nil {
		return nil
	}
	current := []*node{n}
	for _, part := range strings.Split(path, "/") {
		var next []*node
		for _, c := range current {
			for _, child := range c.Children {
				if child.Name.Local == part {
					next = append(next, child)
				}
			}
		}
		current = next
	}
	return current
}

func (n *node) first(path string) *node {
	if found := n.all(path); len(found) > 0 {
		return found[0]
	}
	return nil
}

// text returns the trimmed text at path and whether the element exists.
func (n *node) text(path string) (string, bool) {
	found := n.first(path)
	if found == nil {
		return "", false
	}
	return strings.TrimSpace(found.Text), true
}

func (n *node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
