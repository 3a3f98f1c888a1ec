package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/charmbracelet/log"
)

const (
	propertyGroupTag = "PropertyGroup"
	referencePathTag = "ReferencePath"
	itemGroupTag     = "ItemGroup"
	referenceTag     = "Reference"
	privateTag       = "Private"
	hintPathTag      = "HintPath"
	toolsVersionAttr = "ToolsVersion"
	includeAttr      = "Include"
)

var (
	// ErrRootMismatch is returned if a user file's root element does not
	// match its project's root element.
	ErrRootMismatch = errors.New("document root does not match project root")

	// ErrNoRoot is returned for a project file without a root element.
	ErrNoRoot = errors.New("no root element")
)

// Options selects the optional project file rewrites.
type Options struct {
	DisableCopyLocal bool
	RemoveHintPath   bool
}

// Enabled reports whether any project file rewrite is requested.
func (o Options) Enabled() bool {
	return o.DisableCopyLocal || o.RemoveHintPath
}

// Resolver points the projects of a solution at the game's binary directory.
type Resolver struct {
	InstallPath string

	// Assemblies is nil unless a project file rewrite is enabled.
	Assemblies AssemblySet

	Options Options
	Config  Config

	out  *log.Logger
	errs *log.Logger
}

// NewResolver returns a Resolver for a validated install path. The game's
// assemblies are scanned only when opts requests a project file rewrite.
func NewResolver(installPath string, cfg Config, opts Options, out, errs *log.Logger) (*Resolver, error) {
	r := &Resolver{
		InstallPath: installPath,
		Options:     opts,
		Config:      cfg,
		out:         out,
		errs:        errs,
	}
	if opts.Enabled() {
		set, err := ScanAssemblies(installPath, out)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", installPath, err)
		}
		r.Assemblies = set
	}
	return r, nil
}

// Run finds the solution above dir and updates each of its projects.
func (r *Resolver) Run(dir string) error {
	solution, err := FindSolution(dir, r.Config.SolutionExt)
	if err != nil {
		return err
	}
	root := filepath.Dir(solution)
	r.out.Debug("Solution directory", "dir", root)

	projects, err := FindProjects(root, r.Config.ProjectExt)
	if err != nil {
		return fmt.Errorf("listing projects in %s: %w", root, err)
	}

	for _, project := range projects {
		if _, err := r.PatchUserFile(project); err != nil {
			return err
		}
		if _, err := r.PatchProject(project); err != nil {
			return err
		}
	}
	return nil
}

// PatchUserFile sets the ReferencePath in the project's user file and
// reports whether the file was written.
func (r *Resolver) PatchUserFile(projectPath string) (bool, error) {
	userPath := projectPath + r.Config.UserExt

	doc := newXMLDocument()
	if _, err := os.Stat(userPath); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(userPath, nil, 0644); err != nil {
			return false, err
		}
		r.out.Info("Creating", "file", userPath)
	} else {
		if doc, err = r.load(userPath); err != nil {
			return false, err
		}
	}

	if err := r.setRoot(doc, projectPath); err != nil {
		return false, err
	}
	if !r.setReferencePath(doc.Root()) {
		return false, nil
	}

	r.out.Info("Saving", "file", userPath)
	if err := doc.save(userPath); err != nil {
		return false, err
	}

	// The IDE reloads the user file only when the project file changes.
	now := time.Now()
	if err := os.Chtimes(projectPath, now, now); err != nil {
		return true, err
	}
	return true, nil
}

// PatchProject rewrites the game references of a project file and reports
// whether the file was written. It does nothing without an assembly set.
func (r *Resolver) PatchProject(projectPath string) (bool, error) {
	if r.Assemblies == nil {
		return false, nil
	}

	doc, err := r.load(projectPath)
	if err != nil {
		return false, err
	}
	root := doc.Root()
	if root == nil {
		return false, fmt.Errorf("%w in %s", ErrNoRoot, projectPath)
	}

	start := time.Now()
	changed := r.updateReferences(root)
	r.out.Info("Update time", "file", projectPath, "elapsed", time.Since(start))

	if !changed {
		return false, nil
	}
	r.out.Info("Saving", "file", projectPath)
	return true, doc.save(projectPath)
}

func (r *Resolver) load(path string) (*xmlDocument, error) {
	doc, err := loadXMLDocument(path)
	if err != nil {
		r.errs.Error("Failed to load", "file", path)
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	r.out.Debug("Opened", "file", path)
	return doc, nil
}

// setRoot gives doc a root element copied from the project file, or checks
// that the existing one matches it.
func (r *Resolver) setRoot(doc *xmlDocument, projectPath string) error {
	template, err := r.load(projectPath)
	if err != nil {
		return err
	}
	templateRoot := template.Root()
	if templateRoot == nil {
		return fmt.Errorf("%w in %s", ErrNoRoot, projectPath)
	}

	if len(doc.Child) == 0 {
		doc.copyFormat(template)
		if decl := template.declaration(); decl != nil {
			doc.CreateProcInst(decl.Target, decl.Inst)
		}
	}

	root := doc.Root()
	if root == nil {
		r.out.Info("Creating document root")
		root = etree.NewElement(templateRoot.FullTag())
		if tv := templateRoot.SelectAttr(toolsVersionAttr); tv != nil {
			root.CreateAttr(tv.FullKey(), tv.Value)
		}
		if ns := templateRoot.NamespaceURI(); ns != "" {
			key := "xmlns"
			if templateRoot.Space != "" {
				key += ":" + templateRoot.Space
			}
			root.CreateAttr(key, ns)
		}
		if n := len(doc.Child); n > 0 {
			if _, ok := doc.Child[n-1].(*etree.CharData); !ok {
				doc.CreateText("\n")
			}
		}
		doc.SetRoot(root)
		return nil
	}

	if root.FullTag() != templateRoot.FullTag() {
		return fmt.Errorf("%w: document root's name (%s) is not %s", ErrRootMismatch, root.FullTag(), templateRoot.FullTag())
	}
	return nil
}

// setReferencePath stores the install path in the first ReferencePath under
// any PropertyGroup, adding a new group if there is none. It reports whether
// root was modified.
func (r *Resolver) setReferencePath(root *etree.Element) bool {
	for _, group := range descendants(root, propertyGroupTag) {
		for _, child := range children(group, referencePathTag) {
			if child.Text() == r.InstallPath {
				r.out.Debug("Reference path already set", "path", r.InstallPath)
				return false
			}
			r.out.Info("Changing reference path", "from", child.Text(), "to", r.InstallPath)
			child.SetText(r.InstallPath)
			return true
		}
	}

	r.out.Info("Adding new reference path", "path", r.InstallPath)
	group := appendElement(root, qualify(root, propertyGroupTag))
	appendElement(group, qualify(root, referencePathTag)).SetText(r.InstallPath)
	return true
}

func (r *Resolver) updateReferences(root *etree.Element) bool {
	changed := false
	for _, group := range descendants(root, itemGroupTag) {
		for _, ref := range descendants(group, referenceTag) {
			include := ref.SelectAttr(includeAttr)
			if include == nil || !r.Assemblies.Contains(include.Value) {
				continue
			}
			if r.Options.DisableCopyLocal && r.disableCopyLocal(root, ref, include.Value) {
				changed = true
			}
			if r.Options.RemoveHintPath && r.removeHintPaths(ref, include.Value) {
				changed = true
			}
		}
	}
	return changed
}

func (r *Resolver) disableCopyLocal(root, ref *etree.Element, name string) bool {
	privates := descendants(ref, privateTag)
	if len(privates) == 0 {
		appendElement(ref, qualify(root, privateTag)).SetText("False")
		r.out.Info("Set private element", "reference", name)
		return true
	}

	changed := false
	for _, p := range privates {
		if strings.EqualFold(p.Text(), "False") {
			continue
		}
		p.SetText("False")
		r.out.Info("Changed private element", "reference", name)
		changed = true
	}
	return changed
}

func (r *Resolver) removeHintPaths(ref *etree.Element, name string) bool {
	hints := descendants(ref, hintPathTag)
	for _, h := range hints {
		removeElement(h)
	}
	if len(hints) > 0 {
		r.out.Info("Removed hint path", "reference", name, "count", len(hints))
	}
	return len(hints) > 0
}

// qualify prefixes tag with root's namespace prefix, if it has one.
func qualify(root *etree.Element, tag string) string {
	if root.Space == "" {
		return tag
	}
	return root.Space + ":" + tag
}
