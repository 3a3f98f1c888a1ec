package main

import (
	"bytes"
	"os"
	"strings"

	"github.com/beevik/etree"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const indentUnit = "  "

// xmlDocument is an MSBuild file loaded for editing. The byte order mark,
// line endings and "<X />" empty tags of the original file are kept on save.
type xmlDocument struct {
	*etree.Document
	bom            bool
	crlf           bool
	spaceEmptyTags bool
}

func newXMLDocument() *xmlDocument {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	// leave quotes in text and MSBuild conditions like '$(Configuration)' as written
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true
	return &xmlDocument{Document: doc}
}

func loadXMLDocument(path string) (*xmlDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	d := newXMLDocument()
	if bytes.HasPrefix(data, utf8BOM) {
		d.bom = true
		data = data[len(utf8BOM):]
	}
	d.crlf = bytes.Contains(data, []byte("\r\n"))
	d.spaceEmptyTags = bytes.Contains(data, []byte(" />"))
	if err := d.ReadFromBytes(data); err != nil {
		return nil, err
	}
	return d, nil
}

// copyFormat makes d write with the same conventions as src.
func (d *xmlDocument) copyFormat(src *xmlDocument) {
	d.bom = src.bom
	d.crlf = src.crlf
	d.spaceEmptyTags = src.spaceEmptyTags
}

func (d *xmlDocument) save(path string) error {
	data, err := d.WriteToBytes()
	if err != nil {
		return err
	}
	if d.spaceEmptyTags {
		data = spaceSelfClosingTags(data)
	}
	if d.crlf {
		data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
		data = bytes.ReplaceAll(data, []byte("\n"), []byte("\r\n"))
	}
	if d.bom {
		data = append(append([]byte{}, utf8BOM...), data...)
	}
	return os.WriteFile(path, data, 0644)
}

// declaration returns the document's <?xml ...?> instruction, if any.
func (d *xmlDocument) declaration() *etree.ProcInst {
	for _, t := range d.Child {
		if p, ok := t.(*etree.ProcInst); ok && p.Target == "xml" {
			return p
		}
	}
	return nil
}

// descendants returns all elements below e with the given local name.
func descendants(e *etree.Element, tag string) []*etree.Element {
	return e.FindElements(".//" + tag)
}

// children returns the direct child elements of e with the given local name.
func children(e *etree.Element, tag string) []*etree.Element {
	return e.SelectElements(tag)
}

// appendElement adds a new last child element to parent, indented like its
// siblings or one level deeper than parent.
func appendElement(parent *etree.Element, tag string) *etree.Element {
	child := etree.NewElement(tag)

	outer, _ := indentOf(parent)
	inner := outer + indentUnit
	if kids := parent.ChildElements(); len(kids) > 0 {
		indent, ownLine := indentOf(kids[0])
		if !ownLine {
			parent.AddChild(child)
			return child
		}
		inner = indent
	}

	if n := len(parent.Child); n > 0 {
		if cd, ok := parent.Child[n-1].(*etree.CharData); ok && isBlank(cd) {
			parent.InsertChildAt(n-1, etree.NewText("\n"+inner))
			parent.InsertChildAt(n, child)
			return child
		}
	}
	parent.AddChild(etree.NewText("\n" + inner))
	parent.AddChild(child)
	parent.AddChild(etree.NewText("\n" + outer))
	return child
}

// removeElement unlinks e together with the whitespace that indents it.
func removeElement(e *etree.Element) {
	parent := e.Parent()
	if parent == nil {
		return
	}
	i := e.Index()
	parent.RemoveChildAt(i)
	if i > 0 {
		if cd, ok := parent.Child[i-1].(*etree.CharData); ok && isBlank(cd) {
			parent.RemoveChildAt(i - 1)
		}
	}
}

// indentOf returns the whitespace between the start of e's line and e, and
// whether e starts its own line.
func indentOf(e *etree.Element) (string, bool) {
	parent := e.Parent()
	if parent == nil {
		return "", true
	}
	i := e.Index()
	if i <= 0 {
		// the document root may open the file
		return "", parent.Parent() == nil
	}
	cd, ok := parent.Child[i-1].(*etree.CharData)
	if !ok || !isBlank(cd) {
		return "", false
	}
	nl := strings.LastIndexByte(cd.Data, '\n')
	if nl < 0 {
		return "", false
	}
	return cd.Data[nl+1:], true
}

func isBlank(cd *etree.CharData) bool {
	return !cd.IsCData() && strings.TrimSpace(cd.Data) == ""
}

// spaceSelfClosingTags rewrites "<X/>" as "<X />" outside comments, CDATA
// sections and processing instructions.
func spaceSelfClosingTags(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/32)
	for i := 0; i < len(data); {
		rest := data[i:]
		var end int
		switch {
		case bytes.HasPrefix(rest, []byte("<!--")):
			end = skipPast(rest, "-->")
		case bytes.HasPrefix(rest, []byte("<![CDATA[")):
			end = skipPast(rest, "]]>")
		case bytes.HasPrefix(rest, []byte("<?")):
			end = skipPast(rest, "?>")
		case rest[0] == '<':
			end = tagEnd(rest)
			tag := rest[:end]
			if n := len(tag); n > 3 && bytes.HasSuffix(tag, []byte("/>")) && tag[n-3] != ' ' {
				out = append(out, tag[:n-2]...)
				out = append(out, " />"...)
				i += end
				continue
			}
		default:
			end = bytes.IndexByte(rest, '<')
			if end < 0 {
				end = len(rest)
			}
		}
		out = append(out, rest[:end]...)
		i += end
	}
	return out
}

// skipPast returns the length of the prefix of b that ends with term, or
// len(b) if term does not occur.
func skipPast(b []byte, term string) int {
	if j := bytes.Index(b, []byte(term)); j >= 0 {
		return j + len(term)
	}
	return len(b)
}

// tagEnd returns the length of the markup tag opening b, honoring quoted
// attribute values.
func tagEnd(b []byte) int {
	var quote byte
	for j := 1; j < len(b); j++ {
		c := b[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return j + 1
		}
	}
	return len(b)
}
