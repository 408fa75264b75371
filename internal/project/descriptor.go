package project

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"asset-bundler/internal/vfs"
)

// DescriptorFile is the project descriptor's file name in the project root.
const DescriptorFile = "game.project.xml"

// xmlProject matches the game.project.xml schema.
type xmlProject struct {
	Title     string        `xml:"Title,attr"`
	Version   string        `xml:"Version,attr"`
	Bootstrap xmlBootstrap  `xml:"Bootstrap"`
	Libraries []xmlLibrary  `xml:"Library"`
	Platforms []xmlPlatform `xml:"Platform"`
}

type xmlBootstrap struct {
	Collection string `xml:"Collection,attr"`
}

type xmlLibrary struct {
	Path    string `xml:"Path,attr"`
	Prefix  string `xml:"Prefix,attr"`
	Include string `xml:"Include,attr"`
	Exclude string `xml:"Exclude,attr"`
}

type xmlPlatform struct {
	Name           string `xml:"Name,attr"`
	Variant        string `xml:"Variant,attr"`
	TextureMaxSize string `xml:"TextureMaxSize,attr"`
}

// Library is a zip archive of shared resources layered under the project.
type Library struct {
	Path    string // archive path, relative to the project root unless absolute
	Prefix  string // directory inside the archive that maps to "/"
	Include string // optional glob, e.g. "**/*.png"
	Exclude string
}

// Platform holds per-target build settings.
type Platform struct {
	Name           string
	Variant        string // debug or release
	TextureMaxSize int    // 0 keeps source sizes
}

// Descriptor is a parsed game.project.xml.
type Descriptor struct {
	Title     string
	Version   string
	Bootstrap string // rooted path of the main collection
	Libraries []Library
	Platforms []Platform
}

// LoadDescriptor reads and parses a descriptor file.
func LoadDescriptor(path string) (*Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("project: read %s: %w", path, err)
	}
	d, err := ParseDescriptor(raw)
	if err != nil {
		return nil, fmt.Errorf("project: parse %s: %w", path, err)
	}
	return d, nil
}

// ParseDescriptor decodes descriptor XML.
func ParseDescriptor(raw []byte) (*Descriptor, error) {
	var x xmlProject
	if err := xml.Unmarshal(raw, &x); err != nil {
		return nil, err
	}
	if x.Bootstrap.Collection == "" {
		return nil, fmt.Errorf("no bootstrap collection")
	}

	d := &Descriptor{
		Title:     x.Title,
		Version:   x.Version,
		Bootstrap: vfs.Clean(x.Bootstrap.Collection),
	}
	for _, lib := range x.Libraries {
		if lib.Path == "" {
			continue
		}
		d.Libraries = append(d.Libraries, Library(lib))
	}
	for _, p := range x.Platforms {
		if p.Name == "" {
			continue
		}
		plat := Platform{Name: p.Name, Variant: p.Variant}
		if p.TextureMaxSize != "" {
			n, err := strconv.Atoi(p.TextureMaxSize)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("platform %s: bad TextureMaxSize %q", p.Name, p.TextureMaxSize)
			}
			plat.TextureMaxSize = n
		}
		d.Platforms = append(d.Platforms, plat)
	}
	return d, nil
}

// Platform returns the settings for name. Unknown platforms get defaults.
func (d *Descriptor) Platform(name string) Platform {
	for _, p := range d.Platforms {
		if p.Name == name {
			return p
		}
	}
	return Platform{Name: name}
}

// FS stacks the project directory over the descriptor's libraries. The
// result still needs to be mounted.
func (d *Descriptor) FS(rootDir string) *vfs.LayeredFS {
	var libs []vfs.MountPoint
	for _, lib := range d.Libraries {
		p := lib.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(rootDir, p)
		}
		var f vfs.Filter
		if lib.Include != "" {
			f.Include = []string{lib.Include}
		}
		if lib.Exclude != "" {
			f.Exclude = []string{lib.Exclude}
		}
		libs = append(libs, vfs.NewZipMount(p, lib.Prefix, f))
	}
	return vfs.NewProjectFS(rootDir, libs...)
}
