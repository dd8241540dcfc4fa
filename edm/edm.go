// Package edm holds the event records consumed by the resolution analyses.
//
// Records in an Event refer to each other through ID values: the index of
// the record in its collection. Two particles with identical kinematics are
// still different particles if their IDs differ.
package edm

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ID identifies a record inside its collection of one event.
type ID int

// NoID marks a missing reference.
const NoID ID = -1

// StatusFinal is the generator status of final-state particles.
const StatusFinal = 1

type Particle struct {
	ID     ID
	PDG    int32
	Status int32
	Mom    r3.Vec
	Vertex r3.Vec
	Mass   float64
	Energy float64
}

// EnergyFromMom returns sqrt(|p|^2 + m^2).
func EnergyFromMom(p r3.Vec, m float64) float64 {
	return math.Sqrt(r3.Dot(p, p) + m*m)
}

type Hit struct {
	ID     ID
	Energy float64
	Pos    r3.Vec
	Layer  int
}

type Cluster struct {
	ID     ID
	Energy float64
	Pos    r3.Vec
	Hits   []ID
}

// Association links a truth particle to a reconstructed cluster.
type Association struct {
	Sim    ID
	Rec    ID
	Weight float64
}

type Event struct {
	Number    int
	Particles []Particle
	Clusters  []Cluster
	Hits      []Hit
	Assocs    []Association
}

func (evt *Event) Particle(id ID) (Particle, bool) {
	if id < 0 || int(id) >= len(evt.Particles) {
		return Particle{}, false
	}
	return evt.Particles[id], true
}

func (evt *Event) Cluster(id ID) (Cluster, bool) {
	if id < 0 || int(id) >= len(evt.Clusters) {
		return Cluster{}, false
	}
	return evt.Clusters[id], true
}

func (evt *Event) Hit(id ID) (Hit, bool) {
	if id < 0 || int(id) >= len(evt.Hits) {
		return Hit{}, false
	}
	return evt.Hits[id], true
}

// Collections names the event collections an analysis reads.
type Collections struct {
	Particles string
	Clusters  string
	Hits      string
	Assocs    string
}

func DefaultCollections() Collections {
	return Collections{
		Particles: "MCParticles",
		Clusters:  "EcalBarrelClusters",
		Hits:      "EcalBarrelImagingRecHits",
		Assocs:    "EcalBarrelClusterAssociations",
	}
}
