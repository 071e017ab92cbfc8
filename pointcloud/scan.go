package pointcloud

import (
	"github.com/golang/geo/r3"

	"github.com/eaa3/octomap/spatialmath"
)

// ScanNode bundles a point cloud with the sensor origin it was taken from and
// the pose of the sensor frame in the map frame. The cloud and sensor origin
// are expressed relative to the frame origin.
type ScanNode struct {
	Cloud        PointCloud
	SensorOrigin r3.Vector
	FramePose    spatialmath.Pose
}

// NewScanNode returns a scan node for the given cloud. A nil frame pose is
// treated as the identity.
func NewScanNode(cloud PointCloud, sensorOrigin r3.Vector, framePose spatialmath.Pose) ScanNode {
	if framePose == nil {
		framePose = spatialmath.NewZeroPose()
	}
	return ScanNode{Cloud: cloud, SensorOrigin: sensorOrigin, FramePose: framePose}
}

// AbsoluteCloud returns the cloud transformed into the map frame.
func (sn ScanNode) AbsoluteCloud() PointCloud {
	return sn.Cloud.Transform(sn.FramePose)
}

// AbsoluteSensorOrigin returns the sensor origin in the map frame.
func (sn ScanNode) AbsoluteSensorOrigin() r3.Vector {
	return sn.FramePose.TransformPoint(sn.SensorOrigin)
}
