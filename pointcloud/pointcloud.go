// Package pointcloud defines the point-cloud container consumed by the
// occupancy mapping engine and provides a basic implementation for one.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/eaa3/octomap/spatialmath"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	totalX, totalY, totalZ float64
}

// PointCloud is a general purpose container of measurement endpoints. It does
// not dictate whether or not the cloud is sparse or dense; the basic
// implementation is an append-only sequence.
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// MetaData returns the metadata of the points stored in the cloud.
	MetaData() MetaData

	// Add appends the given point to the cloud.
	Add(p r3.Vector)

	// At returns the i-th point of the cloud.
	At(i int) r3.Vector

	// Iterate iterates over all points in the cloud and calls the given
	// function for each point. If the supplied function returns false,
	// iteration will stop after the function returns.
	Iterate(fn func(p r3.Vector) bool)

	// Transform returns a new cloud with every point transformed by the
	// given pose.
	Transform(pose spatialmath.Pose) PointCloud
}

// NewMetaData returns a new MetaData with bounds ready for merging.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64, MaxX: -math.MaxFloat64,
		MinY: math.MaxFloat64, MaxY: -math.MaxFloat64,
		MinZ: math.MaxFloat64, MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the metadata with the new point.
func (meta *MetaData) Merge(p r3.Vector) {
	if p.X > meta.MaxX {
		meta.MaxX = p.X
	}
	if p.Y > meta.MaxY {
		meta.MaxY = p.Y
	}
	if p.Z > meta.MaxZ {
		meta.MaxZ = p.Z
	}
	if p.X < meta.MinX {
		meta.MinX = p.X
	}
	if p.Y < meta.MinY {
		meta.MinY = p.Y
	}
	if p.Z < meta.MinZ {
		meta.MinZ = p.Z
	}
	meta.totalX += p.X
	meta.totalY += p.Y
	meta.totalZ += p.Z
}

// Center returns the centroid of all points merged into the metadata so far.
func (meta *MetaData) Center(size int) r3.Vector {
	if size == 0 {
		return r3.Vector{}
	}
	return r3.Vector{
		X: meta.totalX / float64(size),
		Y: meta.totalY / float64(size),
		Z: meta.totalZ / float64(size),
	}
}
