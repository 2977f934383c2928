package inventory

import (
	"context"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/familiar/internal/clock"
	"github.com/specialistvlad/familiar/internal/model"
)

// Document is the YAML layout read by FileSource:
//
//	hosts:
//	  - host: home
//	    units: 64
//	targets:
//	  - id: n00dles
//	    resourceCapacity: 1750000
//	    resourceAvailable: 70000
//	    riskLevel: 1
//	    riskFloor: 1
//	    growthFactor: 3000
//	    baseDuration: 20s
type Document struct {
	Hosts   []model.CapacityUnit `yaml:"hosts"`
	Targets []model.Target       `yaml:"targets"`
}

// FileSource reads the inventory from a YAML document rewritten by an
// external collector.
type FileSource struct {
	Path  string
	Clock clock.Clock
}

// NewFileSource returns a source reading path.
func NewFileSource(path string, clk clock.Clock) *FileSource {
	return &FileSource{Path: path, Clock: clk}
}

func (s *FileSource) read() (Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse %s: %w", s.Path, err)
	}
	return doc, nil
}

// Discover lists the hosts and targets currently in the document.
func (s *FileSource) Discover(context.Context) (Topology, error) {
	doc, err := s.read()
	if err != nil {
		return Topology{}, err
	}
	var topo Topology
	for _, h := range doc.Hosts {
		topo.Hosts = append(topo.Hosts, h.Host)
	}
	for _, t := range doc.Targets {
		topo.Targets = append(topo.Targets, t.ID)
	}
	return topo, nil
}

// Measure re-reads the document, keeping only entries that belong to topo.
func (s *FileSource) Measure(_ context.Context, topo Topology) (Snapshot, error) {
	doc, err := s.read()
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{At: s.Clock.Now()}
	for _, h := range doc.Hosts {
		if slices.Contains(topo.Hosts, h.Host) {
			snap.Capacity = append(snap.Capacity, h)
		}
	}
	for _, t := range doc.Targets {
		if slices.Contains(topo.Targets, t.ID) {
			snap.Targets = append(snap.Targets, t)
		}
	}
	return snap, nil
}
