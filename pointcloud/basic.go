package pointcloud

import (
	"github.com/golang/geo/r3"

	"github.com/eaa3/octomap/spatialmath"
)

// basicPointCloud is the basic implementation of the PointCloud interface
// backed by a slice of points in measurement order.
type basicPointCloud struct {
	points []r3.Vector
	meta   MetaData
}

// New returns an empty PointCloud backed by a basicPointCloud.
func New() PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty, preallocated PointCloud backed by a basicPointCloud.
func NewWithPrealloc(size int) PointCloud {
	return &basicPointCloud{
		points: make([]r3.Vector, 0, size),
		meta:   NewMetaData(),
	}
}

// NewFromPoints returns a PointCloud holding a copy of the given points.
func NewFromPoints(points []r3.Vector) PointCloud {
	cloud := NewWithPrealloc(len(points))
	for _, p := range points {
		cloud.Add(p)
	}
	return cloud
}

func (cloud *basicPointCloud) Size() int {
	return len(cloud.points)
}

func (cloud *basicPointCloud) MetaData() MetaData {
	return cloud.meta
}

func (cloud *basicPointCloud) Add(p r3.Vector) {
	cloud.points = append(cloud.points, p)
	cloud.meta.Merge(p)
}

func (cloud *basicPointCloud) At(i int) r3.Vector {
	return cloud.points[i]
}

func (cloud *basicPointCloud) Iterate(fn func(p r3.Vector) bool) {
	for _, p := range cloud.points {
		if !fn(p) {
			return
		}
	}
}

func (cloud *basicPointCloud) Transform(pose spatialmath.Pose) PointCloud {
	transformed := NewWithPrealloc(len(cloud.points))
	for _, p := range cloud.points {
		transformed.Add(pose.TransformPoint(p))
	}
	return transformed
}
